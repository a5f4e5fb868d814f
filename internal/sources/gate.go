package sources

import "github.com/stacklok/toolhive-catalog/internal/catalog"

// FilterByPopularity keeps the hits whose repository popularity, counting
// unknown as zero, is at least threshold. Input order is preserved.
func FilterByPopularity(hits []catalog.DiscoveryHit, popularity catalog.PopularityMap, threshold int) []catalog.DiscoveryHit {
	kept := make([]catalog.DiscoveryHit, 0, len(hits))
	for _, hit := range hits {
		if popularity.ValueOrZero(hit.SourceRepo) >= threshold {
			kept = append(kept, hit)
		}
	}
	return kept
}

// UniqueRepos returns the distinct repositories of hits in first-seen order
func UniqueRepos(hits []catalog.DiscoveryHit) []string {
	seen := make(map[string]struct{}, len(hits))
	var repos []string
	for _, hit := range hits {
		if _, ok := seen[hit.SourceRepo]; ok {
			continue
		}
		seen[hit.SourceRepo] = struct{}{}
		repos = append(repos, hit.SourceRepo)
	}
	return repos
}

// LimitRepos keeps every hit of the first limit distinct repositories, in
// input order. A limit of zero or less keeps everything.
func LimitRepos(hits []catalog.DiscoveryHit, limit int) []catalog.DiscoveryHit {
	if limit <= 0 {
		return hits
	}
	repos := UniqueRepos(hits)
	if len(repos) <= limit {
		return hits
	}

	keep := make(map[string]struct{}, limit)
	for _, repo := range repos[:limit] {
		keep[repo] = struct{}{}
	}
	kept := make([]catalog.DiscoveryHit, 0, len(hits))
	for _, hit := range hits {
		if _, ok := keep[hit.SourceRepo]; ok {
			kept = append(kept, hit)
		}
	}
	return kept
}
