// Package api provides the REST API server for the catalog.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v0 "github.com/stacklok/toolhive-catalog/internal/api/v0"
	v1 "github.com/stacklok/toolhive-catalog/internal/api/v1"
	"github.com/stacklok/toolhive-catalog/internal/status"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	"github.com/stacklok/toolhive-catalog/internal/sync/coordinator"
)

// readinessProbeKey is read to confirm the store answers
const readinessProbeKey = "status/readiness-probe.json"

// ServerOption configures the catalog API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares   []func(http.Handler) http.Handler
	triggerSecret string
	readiness     v0.ReadinessChecker
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithTriggerSecret requires the secret as a bearer token on pipeline triggers
func WithTriggerSecret(secret string) ServerOption {
	return func(cfg *serverConfig) {
		cfg.triggerSecret = secret
	}
}

// WithReadiness overrides the default store readiness check
func WithReadiness(checker v0.ReadinessChecker) ServerOption {
	return func(cfg *serverConfig) {
		cfg.readiness = checker
	}
}

// NewServer creates and configures the HTTP router
func NewServer(
	coord coordinator.Coordinator,
	store storage.BlobStore,
	statusSvc status.StatusPersistence,
	opts ...ServerOption,
) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
		readiness:   StoreReadiness(store),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()

	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Mount("/", v0.HealthRouter(cfg.readiness))
	r.Mount("/v1", v1.Router(v1.NewRoutes(coord, store, statusSvc), cfg.triggerSecret))

	return r
}

// StoreReadiness reports ready once the blob store answers a read.
// A missing object counts as an answer.
func StoreReadiness(store storage.BlobStore) v0.ReadinessChecker {
	return v0.ReadinessFunc(func(ctx context.Context) error {
		if store == nil {
			return errors.New("no catalog store configured")
		}
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if _, err := store.Get(ctx, readinessProbeKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("store read failed: %w", err)
		}
		return nil
	})
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
