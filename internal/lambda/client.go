package lambda

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/config"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	apiPrefix       = "/api/v1"
	applicationJSON = "application/json"
	userAgent       = "lai-cli"
)

type retryableKey struct{}

// Client is a typed wrapper over the Lambda Cloud REST API.
type Client struct {
	baseURL string
	token   string
	http    *retryablehttp.Client
}

// NewClient builds a client from resolved configuration.
func NewClient(cfg *config.Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = retryLogger{logging.Logger().Sugar()}
	retryClient.CheckRetry = checkRetry
	// hand the last response back instead of a generic "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if cfg.HTTPTimeout > 0 {
		retryClient.HTTPClient.Timeout = cfg.HTTPTimeout
	}
	if cfg.Insecure {
		if tr, ok := retryClient.HTTPClient.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit --insecure
		}
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    retryClient,
	}
}

// checkRetry retries only requests marked idempotent; mutations are sent once.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if retryable, _ := ctx.Value(retryableKey{}).(bool); !retryable {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func do[T any](ctx context.Context, c *Client, method, path string, body any) (*Result[T], error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	if method == http.MethodGet {
		ctx = context.WithValue(ctx, retryableKey{}, true)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", applicationJSON)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", applicationJSON)
	}

	logging.Logger().Debug("api request",
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	logging.Logger().Debug("api response",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("body", logging.Truncate(string(raw))))

	result := &Result[T]{StatusCode: resp.StatusCode, Body: raw}
	if len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		if result.OK() {
			return nil, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
		// non-JSON error bodies are kept raw
		return result, nil
	}
	if result.OK() {
		if env.Data != nil {
			result.Data = *env.Data
		}
	} else {
		result.APIError = env.Error
	}
	return result, nil
}

// ListInstances fetches every instance visible to the token.
func (c *Client) ListInstances(ctx context.Context) (*Result[[]Instance], error) {
	return do[[]Instance](ctx, c, http.MethodGet, "/instances", nil)
}

// GetInstance fetches one instance by id.
func (c *Client) GetInstance(ctx context.Context, id string) (*Result[Instance], error) {
	return do[Instance](ctx, c, http.MethodGet, "/instances/"+url.PathEscape(id), nil)
}

// RenameInstance changes the display name of an instance.
func (c *Client) RenameInstance(ctx context.Context, id, name string) (*Result[Instance], error) {
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	return do[Instance](ctx, c, http.MethodPost, "/instances/"+url.PathEscape(id), body)
}

// ListInstanceTypes fetches the instance type catalog with regional capacity.
func (c *Client) ListInstanceTypes(ctx context.Context) (*Result[InstanceTypes], error) {
	return do[InstanceTypes](ctx, c, http.MethodGet, "/instance-types", nil)
}

// LaunchInstance submits a launch request.
func (c *Client) LaunchInstance(ctx context.Context, req LaunchRequest) (*Result[LaunchData], error) {
	return do[LaunchData](ctx, c, http.MethodPost, "/instance-operations/launch", req)
}

// TerminateInstances terminates all given instances in one call.
func (c *Client) TerminateInstances(ctx context.Context, ids []string) (*Result[TerminateData], error) {
	body := struct {
		InstanceIDs []string `json:"instance_ids"`
	}{InstanceIDs: ids}
	return do[TerminateData](ctx, c, http.MethodPost, "/instance-operations/terminate", body)
}

// RestartInstances restarts all given instances in one call.
func (c *Client) RestartInstances(ctx context.Context, ids []string) (*Result[RestartData], error) {
	body := struct {
		InstanceIDs []string `json:"instance_ids"`
	}{InstanceIDs: ids}
	return do[RestartData](ctx, c, http.MethodPost, "/instance-operations/restart", body)
}

func (c *Client) ListImages(ctx context.Context) (*Result[[]Image], error) {
	return do[[]Image](ctx, c, http.MethodGet, "/images", nil)
}

func (c *Client) ListSSHKeys(ctx context.Context) (*Result[[]SSHKey], error) {
	return do[[]SSHKey](ctx, c, http.MethodGet, "/ssh-keys", nil)
}

// AddSSHKey uploads a public key, or asks the provider to generate a pair
// when PublicKey is empty.
func (c *Client) AddSSHKey(ctx context.Context, req AddSSHKeyRequest) (*Result[SSHKey], error) {
	return do[SSHKey](ctx, c, http.MethodPost, "/ssh-keys", req)
}

func (c *Client) DeleteSSHKey(ctx context.Context, id string) (*Result[struct{}], error) {
	return do[struct{}](ctx, c, http.MethodDelete, "/ssh-keys/"+url.PathEscape(id), nil)
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l retryLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l retryLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l retryLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
