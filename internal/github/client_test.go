package github_test

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/httpclient"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *github.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := github.NewClient(httpclient.NewDefaultClient(5*time.Second), server.URL, "test-token")
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingCredential(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "   "} {
		_, err := github.NewClient(httpclient.NewDefaultClient(0), "", token)
		require.ErrorIs(t, err, github.ErrMissingCredential)
	}
}

func TestClient_SearchCode(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/code", r.URL.Path)
		assert.Equal(t, "filename:SKILL.md", r.URL.Query().Get("q"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))

		_, _ = fmt.Fprint(w, `{
			"total_count": 2,
			"incomplete_results": false,
			"items": [
				{"path": "skills/pdf/SKILL.md", "html_url": "https://github.com/acme/tools/blob/main/skills/pdf/SKILL.md", "repository": {"full_name": "acme/tools"}},
				{"path": "SKILL.md", "html_url": "https://github.com/bob/solo/blob/main/SKILL.md", "repository": {"full_name": "bob/solo"}}
			]
		}`)
	})

	page, err := client.SearchCode(context.Background(), "filename:SKILL.md", 2, 100)

	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, github.SearchItem{
		Repo:    "acme/tools",
		Path:    "skills/pdf/SKILL.md",
		HTMLURL: "https://github.com/acme/tools/blob/main/skills/pdf/SKILL.md",
	}, page.Items[0])
	assert.Equal(t, "bob/solo", page.Items[1].Repo)
}

func TestClient_SearchCode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		status        int
		body          string
		wantRateLimit bool
	}{
		{name: "forbidden is rate limiting", status: http.StatusForbidden, wantRateLimit: true},
		{name: "too many requests is rate limiting", status: http.StatusTooManyRequests, wantRateLimit: true},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "invalid json", status: http.StatusOK, body: "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			_, err := client.SearchCode(context.Background(), "q", 1, 100)

			require.Error(t, err)
			assert.Equal(t, tt.wantRateLimit, errors.Is(err, github.ErrRateLimited))
			if tt.wantRateLimit {
				// The status coded error stays reachable for callers that retry
				assert.True(t, ratelimit.IsRateLimited(err))
			}
		})
	}
}

func TestClient_GetContent(t *testing.T) {
	t.Parallel()

	encoded := base64.StdEncoding.EncodeToString([]byte(`{"name":"demo"}`))
	// GitHub wraps base64 content at 60 columns
	wrapped := encoded[:10] + `\n` + encoded[10:]

	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus github.ContentStatus
		wantData   []byte
		wantErr    bool
	}{
		{
			name:       "file found",
			status:     http.StatusOK,
			body:       fmt.Sprintf(`{"type":"file","encoding":"base64","content":"%s"}`, wrapped),
			wantStatus: github.ContentFound,
			wantData:   []byte(`{"name":"demo"}`),
		},
		{
			name:       "directory is not found",
			status:     http.StatusOK,
			body:       `[{"type":"file","name":"a"}]`,
			wantStatus: github.ContentNotFound,
		},
		{
			name:       "symlink is not found",
			status:     http.StatusOK,
			body:       `{"type":"symlink","target":"x"}`,
			wantStatus: github.ContentNotFound,
		},
		{
			name:       "missing path",
			status:     http.StatusNotFound,
			wantStatus: github.ContentNotFound,
		},
		{
			name:       "unauthorized repository",
			status:     http.StatusUnauthorized,
			wantStatus: github.ContentInaccessible,
		},
		{
			name:    "rate limited is an error",
			status:  http.StatusTooManyRequests,
			wantErr: true,
		},
		{
			name:    "server error is an error",
			status:  http.StatusBadGateway,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/acme/tools/contents/.claude-plugin/marketplace.json", r.URL.Path)
				assert.Equal(t, "main", r.URL.Query().Get("ref"))
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			result, err := client.GetContent(context.Background(), "acme/tools", ".claude-plugin/marketplace.json", "main")

			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantData, result.Data)
		})
	}
}

func TestClient_GetRepository(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/tools" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprint(w, `{"full_name":"acme/tools","description":"Useful tools","stargazers_count":42,"private":false}`)
	})

	repo, err := client.GetRepository(context.Background(), "acme/tools")
	require.NoError(t, err)
	assert.Equal(t, &github.Repository{FullName: "acme/tools", Description: "Useful tools", Stars: 42}, repo)

	_, err = client.GetRepository(context.Background(), "acme/missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, httpclient.StatusCode(err))
}

func TestContentStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "found", github.ContentFound.String())
	assert.Equal(t, "not found", github.ContentNotFound.String())
	assert.Equal(t, "inaccessible", github.ContentInaccessible.String())
	assert.Equal(t, "unknown", github.ContentStatus(99).String())
}
