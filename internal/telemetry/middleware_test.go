package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewHTTPMetrics(t *testing.T) {
	t.Parallel()

	metrics, err := NewHTTPMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, metrics)

	mp := sdkmetric.NewMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	metrics, err = NewHTTPMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, metrics)
	assert.NotNil(t, metrics.requestDuration)
	assert.NotNil(t, metrics.requestsTotal)
	assert.NotNil(t, metrics.activeRequests)
}

func TestHTTPMetrics_PassThroughWhenNil(t *testing.T) {
	t.Parallel()

	mw, err := MetricsMiddleware(nil)
	require.NoError(t, err)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
}

func TestHTTPMetrics_RecordsRoutePattern(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	mw, err := MetricsMiddleware(mp)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(mw)
	router.Get("/v1/catalog/{set}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/v1/catalog/skills", "/v1/catalog/marketplaces", "/nope"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != HTTPMetricsMeterName {
			continue
		}
		for _, m := range scope.Metrics {
			if m.Name != "thv_catalog_http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("route")
				counts[route.AsString()] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), counts["/v1/catalog/{set}"])
	assert.Equal(t, int64(1), counts[unknownRoute])
}
