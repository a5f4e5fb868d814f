package sources

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
)

// RepositoryInspector answers repository liveness and description lookups.
// Each repository is looked up at most once per inspector, so one inspector
// should be created per run.
type RepositoryInspector struct {
	api   github.API
	retry ratelimit.RetryOptions

	mu    sync.Mutex
	cache map[string]*lookup
}

type lookup struct {
	once sync.Once
	repo *github.Repository
	err  error
}

// NewRepositoryInspector creates an inspector
func NewRepositoryInspector(api github.API, retry ratelimit.RetryOptions) *RepositoryInspector {
	if retry.Label == "" {
		retry.Label = "repository"
	}
	return &RepositoryInspector{api: api, retry: retry, cache: make(map[string]*lookup)}
}

// IsAccessible reports whether repo can be read and is public
func (r *RepositoryInspector) IsAccessible(ctx context.Context, repo string) bool {
	info, err := r.get(ctx, repo)
	if err != nil {
		slog.Debug("Repository not accessible", "repo", repo, "error", err)
		return false
	}
	return !info.Private
}

// Description returns the repository description, empty when unavailable
func (r *RepositoryInspector) Description(ctx context.Context, repo string) string {
	info, err := r.get(ctx, repo)
	if err != nil {
		return ""
	}
	return info.Description
}

func (r *RepositoryInspector) get(ctx context.Context, repo string) (*github.Repository, error) {
	r.mu.Lock()
	entry, ok := r.cache[repo]
	if !ok {
		entry = &lookup{}
		r.cache[repo] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		entry.repo, entry.err = ratelimit.Retry(ctx, func(ctx context.Context) (*github.Repository, error) {
			return r.api.GetRepository(ctx, repo)
		}, r.retry)
	})
	return entry.repo, entry.err
}
