// Package v0 provides the unversioned system endpoints: health, readiness and version.
package v0

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/toolhive-catalog/internal/api/common"
	"github.com/stacklok/toolhive-catalog/internal/versions"
)

// ReadinessChecker reports whether the server can serve requests
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessFunc adapts a function to ReadinessChecker
type ReadinessFunc func(ctx context.Context) error

// CheckReadiness implements ReadinessChecker
func (f ReadinessFunc) CheckReadiness(ctx context.Context) error {
	return f(ctx)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(ready ReadinessChecker) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(ready))
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles GET /health
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// readinessHandler handles GET /readiness
func readinessHandler(ready ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			if err := ready.CheckReadiness(r.Context()); err != nil {
				slog.Warn("Readiness check failed", "error", err)
				common.WriteErrorResponse(w, "Catalog store not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	}
}

// versionHandler handles GET /version
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
