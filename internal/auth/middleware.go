// Package auth provides the shared secret authentication middleware that
// guards the pipeline trigger endpoint.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// RFC 6750 Section 3 error codes
const (
	// errorCodeInvalidRequest indicates the request is missing the authorization header or it is malformed
	errorCodeInvalidRequest = "invalid_request"

	// errorCodeInvalidToken indicates the presented secret does not match
	errorCodeInvalidToken = "invalid_token"
)

// defaultRealm is the default protection space identifier
const defaultRealm = "thv-catalog"

var (
	errMissingHeader = errors.New("authorization header is missing")
	errNotBearer     = errors.New("authorization header is not a bearer token")
)

// BearerSecret returns a middleware that requires "Authorization: Bearer <secret>".
// An empty secret disables the check.
func BearerSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		expected := []byte(secret)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				slog.Warn("Token extraction failed",
					"error", err,
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, errorCodeInvalidRequest, "missing or malformed authorization header")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
				slog.Warn("Shared secret mismatch",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, errorCodeInvalidToken, "invalid credentials")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", errNotBearer
	}
	return strings.TrimSpace(token), nil
}

// sanitizeHeaderValue removes characters that could enable header injection attacks
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// writeError writes a JSON error response with an RFC 6750 WWW-Authenticate header
func writeError(w http.ResponseWriter, status int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s", error="%s", error_description="%s"`,
		defaultRealm, errCode, sanitizeHeaderValue(description)))
	w.WriteHeader(status)

	resp := struct {
		Error string `json:"error"`
	}{
		Error: description,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
