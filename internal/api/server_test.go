package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog/internal/api"
	v0 "github.com/stacklok/toolhive-catalog/internal/api/v0"
	"github.com/stacklok/toolhive-catalog/internal/config"
	"github.com/stacklok/toolhive-catalog/internal/status"
	"github.com/stacklok/toolhive-catalog/internal/storage"
	storagemocks "github.com/stacklok/toolhive-catalog/internal/storage/mocks"
	pkgsync "github.com/stacklok/toolhive-catalog/internal/sync"
	coordmocks "github.com/stacklok/toolhive-catalog/internal/sync/coordinator/mocks"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
)

func newServer(t *testing.T, store storage.BlobStore, opts ...api.ServerOption) (http.Handler, *coordmocks.MockCoordinator) {
	t.Helper()
	ctrl := gomock.NewController(t)
	coord := coordmocks.NewMockCoordinator(ctrl)
	return api.NewServer(coord, store, status.NewStatusPersistence(store), opts...), coord
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := newServer(t, storage.NewMemoryStore())

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		setupStore     func(*storagemocks.MockBlobStore)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "store answers with data",
			setupStore: func(m *storagemocks.MockBlobStore) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(`{}`), nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name: "missing probe object counts as ready",
			setupStore: func(m *storagemocks.MockBlobStore) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "ready",
		},
		{
			name: "store unreachable",
			setupStore: func(m *storagemocks.MockBlobStore) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: connection refused"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			store := storagemocks.NewMockBlobStore(ctrl)
			tt.setupStore(store)

			server, _ := newServer(t, store)

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.expectedBody)
		})
	}
}

func TestWithReadiness(t *testing.T) {
	t.Parallel()

	server, _ := newServer(t, storage.NewMemoryStore(), api.WithReadiness(v0.ReadinessFunc(func(context.Context) error {
		return errors.New("warming up")
	})))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readiness", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStoreReadiness_NilStore(t *testing.T) {
	t.Parallel()
	assert.Error(t, api.StoreReadiness(nil).CheckReadiness(context.Background()))
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()

	server, _ := newServer(t, storage.NewMemoryStore())

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Contains(t, response, "version")
	assert.Contains(t, response, "go_version")
}

func TestV1Mounted(t *testing.T) {
	t.Parallel()

	store := storage.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), writer.MarketplacesKey, []byte(`[]`)))

	server, coord := newServer(t, store, api.WithTriggerSecret("token"))
	coord.EXPECT().Trigger(gomock.Any(), config.PipelineMarketplaces, pkgsync.RunOptions{}).
		Return(&pkgsync.Report{RunID: "r"}, nil)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/catalog/marketplaces.json", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())

	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/sync/marketplaces", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/sync/marketplaces", nil)
	req.Header.Set("Authorization", "Bearer token")
	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNotFoundRoute(t *testing.T) {
	t.Parallel()

	server, _ := newServer(t, storage.NewMemoryStore())

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/registry/v0.1/servers", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWithMiddlewares(t *testing.T) {
	t.Parallel()

	var seen []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = append(seen, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	server, _ := newServer(t, storage.NewMemoryStore(), api.WithMiddlewares(tag("first"), tag("second")))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, []string{"first", "second"}, seen)
}

//nolint:paralleltest // swaps the default slog logger
func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	handler := middleware.RequestID(api.LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "HTTP request", entry["msg"])
	assert.Equal(t, "/v1/status", entry["path"])
	assert.EqualValues(t, http.StatusTeapot, entry["status"])
	assert.NotEmpty(t, entry["request_id"])
}
