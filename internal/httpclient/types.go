// Package httpclient provides the HTTP client used to talk to remote catalog APIs.
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPError represents an HTTP error with status code and context
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	// RetryAfter is the server supplied Retry-After delay, zero when absent
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// IsRateLimit reports whether the status code signals rate limiting (403 or 429)
func (e *HTTPError) IsRateLimit() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}

// NewHTTPError creates a new HTTPError
func NewHTTPError(statusCode int, url, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		URL:        url,
	}
}

// StatusCode returns the status code carried by err, or 0 when err is not an HTTPError
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

// ParseRetryAfter parses a Retry-After header value, given either as
// delay seconds or as an HTTP date. It returns zero for missing or invalid values.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}

	return 0
}
