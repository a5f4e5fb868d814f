// Package common provides shared HTTP utility functions for API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// GetAndValidateURLParam extracts, decodes and validates a chi URL parameter.
// The decoded value must be non-empty and must not contain whitespace.
func GetAndValidateURLParam(r *http.Request, paramName string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}

	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}
	if strings.ContainsAny(decoded, " \t\n\r") {
		return "", fmt.Errorf("%s cannot contain whitespace", paramName)
	}

	return decoded, nil
}

// QueryBool parses an optional boolean query parameter, false when absent
func QueryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", name)
	}
	return v, nil
}

// QueryNonNegativeInt parses an optional non-negative integer query
// parameter. The second result is false when the parameter is absent.
func QueryNonNegativeInt(r *http.Request, name string) (int, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return v, true, nil
}
