package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is used when a zero timeout is passed to NewDefaultClient
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps how much of a response body is read (100 MB)
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent is sent with every request
	UserAgent = "toolhive-catalog/1.0"
)

// Client fetches remote resources over HTTP
type Client interface {
	// Get performs a GET request and returns the response body.
	// Non-2xx responses are returned as *HTTPError.
	Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error)
}

// RequestOption customizes a single request
type RequestOption func(*http.Request)

// WithHeader sets a request header, replacing any default value
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// WithBearerToken sets the Authorization header to a bearer token
func WithBearerToken(token string) RequestOption {
	return func(req *http.Request) {
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// DefaultClient is the net/http backed Client
type DefaultClient struct {
	client *http.Client
	now    func() time.Time
}

// NewDefaultClient creates a client with the given timeout
func NewDefaultClient(timeout time.Duration) *DefaultClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &DefaultClient{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Get implements Client
func (c *DefaultClient) Get(ctx context.Context, url string, opts ...RequestOption) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > MaxResponseSize {
		return nil, sizeLimitError()
	}

	// Read one byte past the limit so oversized bodies can be detected
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, sizeLimitError()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := NewHTTPError(resp.StatusCode, url, http.StatusText(resp.StatusCode))
		httpErr.RetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, httpErr
	}

	return body, nil
}

func sizeLimitError() error {
	return fmt.Errorf("response body exceeds maximum allowed size of %.2f MB",
		float64(MaxResponseSize)/(1024*1024))
}
