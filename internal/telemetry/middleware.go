package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetricsMeterName is the name used for the HTTP metrics meter
const HTTPMetricsMeterName = "github.com/stacklok/toolhive-catalog/http"

// unknownRoute labels requests chi could not route, bounding label cardinality
const unknownRoute = "unknown_route"

// HTTPMetrics holds the instruments recorded for API requests
type HTTPMetrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics creates the HTTP instruments on provider.
// If provider is nil, it returns nil (no-op metrics).
func NewHTTPMetrics(provider metric.MeterProvider) (*HTTPMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(HTTPMetricsMeterName)

	requestDuration, err := meter.Float64Histogram(
		"thv_catalog_http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}

	requestsTotal, err := meter.Int64Counter(
		"thv_catalog_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"thv_catalog_http_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		requestDuration: requestDuration,
		requestsTotal:   requestsTotal,
		activeRequests:  activeRequests,
	}, nil
}

// Middleware records duration, count and in-flight requests per route.
// A nil HTTPMetrics passes requests through.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// r.Context() may be cancelled once ServeHTTP returns
		ctx := r.Context()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		m.activeRequests.Add(ctx, 1)
		next.ServeHTTP(ww, r)
		m.activeRequests.Add(ctx, -1)

		attrs := metric.WithAttributes(
			attribute.String("method", r.Method),
			attribute.String("route", routePattern(r)),
			attribute.String("status_code", strconv.Itoa(ww.Status())),
		)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		m.requestsTotal.Add(ctx, 1, attrs)
	})
}

// MetricsMiddleware combines NewHTTPMetrics and Middleware
func MetricsMiddleware(provider metric.MeterProvider) (func(http.Handler) http.Handler, error) {
	metrics, err := NewHTTPMetrics(provider)
	if err != nil {
		return nil, err
	}
	return metrics.Middleware, nil
}

// routePattern returns the chi route pattern such as /v1/catalog/{set}
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return unknownRoute
}
