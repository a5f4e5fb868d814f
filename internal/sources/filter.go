package sources

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

// RepoFilter selects repositories by owner/name glob patterns. A '*' never
// crosses the '/' between owner and name.
type RepoFilter struct {
	include []repoPattern
	exclude []repoPattern
}

type repoPattern struct {
	source string
	glob   glob.Glob
}

// NewRepoFilter compiles the include and exclude patterns. Patterns match
// case-insensitively.
func NewRepoFilter(include, exclude []string) (*RepoFilter, error) {
	inc, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exc, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &RepoFilter{include: inc, exclude: exc}, nil
}

func compilePatterns(patterns []string) ([]repoPattern, error) {
	compiled := make([]repoPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("'%s': %w", pattern, err)
		}
		compiled = append(compiled, repoPattern{source: pattern, glob: g})
	}
	return compiled, nil
}

// Empty reports whether the filter accepts every repository
func (f *RepoFilter) Empty() bool {
	return f == nil || (len(f.include) == 0 && len(f.exclude) == 0)
}

// ShouldInclude reports whether repo passes the filter, with the reason.
//
// An exclude match always wins. When include patterns are set the repo must
// match one of them; otherwise everything not excluded passes.
func (f *RepoFilter) ShouldInclude(repo string) (bool, string) {
	if f.Empty() {
		return true, "no repository filters specified"
	}

	name := strings.ToLower(repo)
	for _, p := range f.exclude {
		if p.glob.Match(name) {
			return false, fmt.Sprintf("excluded by pattern '%s'", p.source)
		}
	}

	if len(f.include) == 0 {
		return true, "no match in exclude patterns"
	}
	for _, p := range f.include {
		if p.glob.Match(name) {
			return true, fmt.Sprintf("included by pattern '%s'", p.source)
		}
	}
	return false, "no match found in include patterns"
}

// Apply keeps the hits whose repository passes the filter, in input order,
// and returns the number of distinct repositories it dropped.
func (f *RepoFilter) Apply(hits []catalog.DiscoveryHit) ([]catalog.DiscoveryHit, int) {
	if f.Empty() {
		return hits, 0
	}

	decisions := make(map[string]bool)
	kept := make([]catalog.DiscoveryHit, 0, len(hits))
	for _, hit := range hits {
		include, seen := decisions[hit.SourceRepo]
		if !seen {
			include, _ = f.ShouldInclude(hit.SourceRepo)
			decisions[hit.SourceRepo] = include
		}
		if include {
			kept = append(kept, hit)
		}
	}

	dropped := 0
	for _, include := range decisions {
		if !include {
			dropped++
		}
	}
	return kept, dropped
}
