// Package reddit is the rate-limited client for the discussion platform.
// It authenticates with the script-app password grant, paces every upstream
// call through one shared limiter, and absorbs provider rate-limit errors.
package reddit

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	// Script-app credentials, all required.
	ClientID     string
	ClientSecret string
	Username     string
	Password     string

	UserAgent string // default: "conu-planner/0.1 (dev)"

	BaseURL  string // default: "https://oauth.reddit.com"
	TokenURL string // default: "https://www.reddit.com/api/v1/access_token"

	// RequestDelay is the minimum spacing between any two upstream HTTP
	// calls issued by this client instance (default: 1100ms). The pacing is
	// global, not per caller.
	RequestDelay time.Duration

	// Optional connection pool settings.
	MaxIdleConns        int // default: 100
	MaxIdleConnsPerHost int // default: 100

	// Custom HTTP client (for testing or special configs).
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return errors.New("ClientID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("ClientSecret is required")
	}
	if c.Username == "" {
		return errors.New("Username is required")
	}
	if c.Password == "" {
		return errors.New("Password is required")
	}
	return nil
}

// WithDefaults returns a copy of Config with sane defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://oauth.reddit.com"
	}
	cfg.TokenURL = strings.TrimRight(cfg.TokenURL, "/")
	if cfg.TokenURL == "" {
		cfg.TokenURL = "https://www.reddit.com/api/v1/access_token"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "conu-planner/0.1 (dev)"
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 1100 * time.Millisecond
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxIdleConnsPerHost <= 0 {
		cfg.MaxIdleConnsPerHost = 100
	}

	return cfg
}

// NewClient creates a paced Reddit client with the given configuration.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: defaultTransport(cfg),
		}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		logger:     logger.Named("reddit"),
	}, nil
}

// defaultTransport creates an HTTP transport with connection pooling and
// reasonable timeouts.
func defaultTransport(cfg Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
