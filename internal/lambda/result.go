package lambda

import (
	"encoding/json"
	"fmt"
)

// APIError is the provider's error envelope body.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Result is the outcome of one API call that reached the server.
// Non-2xx responses are not errors at this layer; check OK or Err.
type Result[T any] struct {
	StatusCode int
	// Data holds the decoded "data" field of a 2xx response.
	Data T
	// APIError holds the decoded "error" field of a non-2xx response, if any.
	APIError *APIError
	Body     []byte
}

func (r *Result[T]) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx results and nil otherwise.
func (r *Result[T]) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, APIError: r.APIError, Body: r.Body}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	APIError   *APIError
	Body       []byte
}

func (e *StatusError) Error() string {
	if e.APIError != nil && e.APIError.Message != "" {
		return fmt.Sprintf("API request failed with status %d: %s", e.StatusCode, e.APIError.Message)
	}
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// Payload returns the response body for structured rendering: decoded JSON
// when the body is JSON, the raw text otherwise.
func (e *StatusError) Payload() any {
	if len(e.Body) == 0 {
		return nil
	}
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &body); err == nil && len(body.Error) > 0 {
		return body.Error
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

type envelope[T any] struct {
	Data  *T        `json:"data"`
	Error *APIError `json:"error"`
}
