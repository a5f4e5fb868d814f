package sources

import (
	"context"
	"log/slog"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
)

// PopularityFetcher looks up repository star counts
type PopularityFetcher struct {
	api   github.API
	retry ratelimit.RetryOptions
	batch ratelimit.BatchOptions
}

// NewPopularityFetcher creates a fetcher. Lookups are paced by batch and each
// lookup is retried on rate limiting according to retry.
func NewPopularityFetcher(api github.API, retry ratelimit.RetryOptions, batch ratelimit.BatchOptions) *PopularityFetcher {
	if retry.Label == "" {
		retry.Label = "popularity"
	}
	return &PopularityFetcher{api: api, retry: retry, batch: batch}
}

// FetchOne returns the star count of repo, or nil when it cannot be fetched
func (p *PopularityFetcher) FetchOne(ctx context.Context, repo string) *int {
	info, err := ratelimit.Retry(ctx, func(ctx context.Context) (*github.Repository, error) {
		return p.api.GetRepository(ctx, repo)
	}, p.retry)
	if err != nil {
		slog.Warn("Could not fetch popularity", "repo", repo, "error", err)
		return nil
	}

	stars := info.Stars
	return &stars
}

// FetchMany looks up every repository. Repositories whose lookup failed map to nil.
func (p *PopularityFetcher) FetchMany(ctx context.Context, repos []string) catalog.PopularityMap {
	results := ratelimit.Batch(ctx, repos, func(ctx context.Context, repo string) (*int, error) {
		return p.FetchOne(ctx, repo), nil
	}, p.batch)

	popularity := make(catalog.PopularityMap, len(repos))
	for i, result := range results {
		popularity[repos[i]] = result.Value
	}
	return popularity
}
