// Package github is the boundary to the GitHub REST API used for discovery:
// code search, file contents at a ref, and repository metadata.
package github

import (
	"context"
	"errors"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks -source=api.go API

// DefaultAPIURL is the public GitHub REST endpoint
const DefaultAPIURL = "https://api.github.com"

var (
	// ErrMissingCredential is returned when no API token is configured
	ErrMissingCredential = errors.New("github token is not configured")

	// ErrRateLimited is returned when a search request is rejected with 403 or 429
	ErrRateLimited = errors.New("github api rate limit exceeded")
)

// API is the subset of the GitHub REST API the catalog needs
type API interface {
	// SearchCode runs one page of a code search query
	SearchCode(ctx context.Context, query string, page, perPage int) (*SearchPage, error)

	// GetContent fetches a file at the given ref. Missing or unreachable files
	// are reported through the result status; errors are reserved for rate
	// limiting and transport failures.
	GetContent(ctx context.Context, repo, path, ref string) (ContentResult, error)

	// GetRepository fetches repository metadata
	GetRepository(ctx context.Context, repo string) (*Repository, error)
}

// SearchPage is one page of code search results
type SearchPage struct {
	TotalCount int
	Items      []SearchItem
}

// SearchItem is a single code search match
type SearchItem struct {
	Repo    string
	Path    string
	HTMLURL string
}

// ContentStatus tags the outcome of a content fetch
type ContentStatus int

const (
	// ContentFound means the file exists and Data holds its bytes
	ContentFound ContentStatus = iota
	// ContentNotFound means the path does not exist on the ref, or is not a file
	ContentNotFound
	// ContentInaccessible means the repository cannot be read
	ContentInaccessible
)

// String implements fmt.Stringer
func (s ContentStatus) String() string {
	switch s {
	case ContentFound:
		return "found"
	case ContentNotFound:
		return "not found"
	case ContentInaccessible:
		return "inaccessible"
	default:
		return "unknown"
	}
}

// ContentResult is the tagged result of GetContent
type ContentResult struct {
	Status ContentStatus
	Data   []byte
}

// Found wraps file bytes in a ContentResult
func Found(data []byte) ContentResult {
	return ContentResult{Status: ContentFound, Data: data}
}

// Repository is the repository metadata the catalog uses
type Repository struct {
	FullName    string
	Description string
	Stars       int
	Private     bool
	Archived    bool
}
