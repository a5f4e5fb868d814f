package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/github"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
)

const (
	// DefaultBranch is tried first for every file
	DefaultBranch = "main"

	// FallbackBranch is tried once when the default branch fails
	FallbackBranch = "master"
)

// ErrNotAccessible is returned when a file cannot be read from either branch
var ErrNotAccessible = errors.New("not accessible")

// ContentFetcher downloads candidate files
type ContentFetcher struct {
	api   github.API
	retry ratelimit.RetryOptions
	batch ratelimit.BatchOptions
}

// NewContentFetcher creates a fetcher. Each branch request is retried on
// rate limiting according to retry; FetchAll fans out according to batch.
func NewContentFetcher(api github.API, retry ratelimit.RetryOptions, batch ratelimit.BatchOptions) *ContentFetcher {
	if retry.Label == "" {
		retry.Label = "content"
	}
	return &ContentFetcher{api: api, retry: retry, batch: batch}
}

// FetchBranch fetches a file from a single branch
func (f *ContentFetcher) FetchBranch(ctx context.Context, repo, path, branch string) (github.ContentResult, error) {
	return ratelimit.Retry(ctx, func(ctx context.Context) (github.ContentResult, error) {
		return f.api.GetContent(ctx, repo, path, branch)
	}, f.retry)
}

// Fetch returns the file bytes from the default branch, falling back to the
// alternate branch once. It fails with ErrNotAccessible when neither works.
func (f *ContentFetcher) Fetch(ctx context.Context, repo, path string) ([]byte, error) {
	var reasons []string

	for _, branch := range []string{DefaultBranch, FallbackBranch} {
		result, err := f.FetchBranch(ctx, repo, path, branch)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch {
		case err != nil:
			reasons = append(reasons, fmt.Sprintf("%s: %v", branch, err))
		case result.Status == github.ContentFound:
			return result.Data, nil
		default:
			reasons = append(reasons, fmt.Sprintf("%s: %s", branch, result.Status))
		}
	}

	slog.Debug("Skipping file, not accessible", "repo", repo, "path", path, "reasons", reasons)
	return nil, fmt.Errorf("%w (%v)", ErrNotAccessible, reasons)
}

// FetchAll fetches every hit and returns the contents in hit order along with
// the failures. A failure never affects other hits.
func (f *ContentFetcher) FetchAll(ctx context.Context, hits []catalog.DiscoveryHit) ([]catalog.CandidateContent, []Failure) {
	results := ratelimit.Batch(ctx, hits, func(ctx context.Context, hit catalog.DiscoveryHit) ([]byte, error) {
		return f.Fetch(ctx, hit.SourceRepo, hit.FilePath)
	}, f.batch)

	var (
		contents []catalog.CandidateContent
		failures []Failure
	)
	for i, result := range results {
		hit := hits[i]
		if !result.OK() {
			failures = append(failures, Failure{SourceRepo: hit.SourceRepo, FilePath: hit.FilePath, Err: result.Err})
			continue
		}
		contents = append(contents, catalog.CandidateContent{
			SourceRepo: hit.SourceRepo,
			FilePath:   hit.FilePath,
			RawText:    string(result.Value),
		})
	}

	return contents, failures
}
