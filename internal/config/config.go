package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultBaseURL is the public Lambda Cloud API origin.
	DefaultBaseURL = "https://cloud.lambdalabs.com"

	// BaseURLEnv overrides DefaultBaseURL.
	BaseURLEnv = "LAMBDA_CLOUD_BASE_URL"

	DefaultRetryMax    = 2
	DefaultHTTPTimeout = 30 * time.Second
)

// TokenEnvVars are consulted in order when no --token flag is given.
var TokenEnvVars = []string{"LAMBDA_CLOUD_TOKEN", "LAMBDA_CLOUD_API_TOKEN", "LAMBDA_API_TOKEN"}

// ErrNoToken is returned when neither the flag nor any token variable is set.
var ErrNoToken = errors.New("No API token provided. Supply --token or set one of: " + strings.Join(TokenEnvVars, ", "))

// Config contains the resolved connection settings for the API client.
type Config struct {
	Token       string
	BaseURL     string
	Insecure    bool
	RetryMax    int
	HTTPTimeout time.Duration
}

// Flags carries the raw global flag values as given on the command line.
type Flags struct {
	Token    string
	BaseURL  string
	Insecure bool
}

// Resolve builds a Config from flags and the environment. getenv is
// usually os.Getenv; tests pass a map lookup.
func Resolve(flags Flags, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := &Config{
		Insecure:    flags.Insecure,
		RetryMax:    DefaultRetryMax,
		HTTPTimeout: DefaultHTTPTimeout,
	}

	cfg.Token = strings.TrimSpace(flags.Token)
	if cfg.Token == "" {
		for _, name := range TokenEnvVars {
			if v := strings.TrimSpace(getenv(name)); v != "" {
				cfg.Token = v
				break
			}
		}
	}
	if cfg.Token == "" {
		return nil, ErrNoToken
	}

	cfg.BaseURL = strings.TrimSpace(flags.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = strings.TrimSpace(getenv(BaseURLEnv))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL %q: %w", cfg.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be an absolute http(s) URL", cfg.BaseURL)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
