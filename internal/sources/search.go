package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/github"
)

const (
	// SearchPageSize is the number of results requested per page
	SearchPageSize = 100

	// SearchMaxPages is the number of pages code search will serve (1000 results)
	SearchMaxPages = 10
)

// CatalogSearcher finds candidate files through code search
type CatalogSearcher struct {
	api      github.API
	pageSize int
	maxPages int
}

// NewCatalogSearcher creates a searcher over the given API
func NewCatalogSearcher(api github.API) *CatalogSearcher {
	return &CatalogSearcher{
		api:      api,
		pageSize: SearchPageSize,
		maxPages: SearchMaxPages,
	}
}

// Search runs every query variant and returns the hits deduplicated by
// repository and path, in first-seen order. Results beyond the provider's
// result window are silently not returned. Search requests are not retried:
// a rate limit response is returned as github.ErrRateLimited.
func (s *CatalogSearcher) Search(ctx context.Context, queries []string) ([]catalog.DiscoveryHit, error) {
	type hitKey struct{ repo, path string }

	seen := make(map[hitKey]struct{})
	var hits []catalog.DiscoveryHit

	for _, query := range queries {
		items, err := s.searchQuery(ctx, query)
		if err != nil {
			return nil, err
		}

		for _, item := range items {
			if item.Repo == "" || item.Path == "" {
				continue
			}
			key := hitKey{item.Repo, item.Path}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			hits = append(hits, catalog.DiscoveryHit{
				SourceRepo: item.Repo,
				FilePath:   item.Path,
				ViewURL:    item.HTMLURL,
			})
		}
	}

	slog.Info("Search completed", "queries", len(queries), "hits", len(hits))
	return hits, nil
}

func (s *CatalogSearcher) searchQuery(ctx context.Context, query string) ([]github.SearchItem, error) {
	var items []github.SearchItem

	for page := 1; page <= s.maxPages; page++ {
		result, err := s.api.SearchCode(ctx, query, page, s.pageSize)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}

		items = append(items, result.Items...)
		slog.Debug("Fetched search page",
			"query", query,
			"page", page,
			"items", len(result.Items),
			"total_count", result.TotalCount)

		if len(result.Items) < s.pageSize || len(items) >= result.TotalCount {
			break
		}
	}

	return items, nil
}
