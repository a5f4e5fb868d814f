package catalog

import (
	"regexp"
	"slices"
	"strings"
)

// AggregateSkillRepos groups skills by source repository, in the order each
// repository is first seen. Every summary is created with origin auto; the
// reconciler keeps the stored origin for repositories that already exist.
func AggregateSkillRepos(skills []Skill) []SkillRepo {
	var order []string
	groups := make(map[string][]Skill)

	for _, skill := range skills {
		if _, seen := groups[skill.SourceRepo]; !seen {
			order = append(order, skill.SourceRepo)
		}
		groups[skill.SourceRepo] = append(groups[skill.SourceRepo], skill)
	}

	repos := make([]SkillRepo, 0, len(order))
	for _, repo := range order {
		items := groups[repo]
		names := make([]string, len(items))
		for i, item := range items {
			names[i] = item.Name
		}

		first := items[0]
		repos = append(repos, SkillRepo{
			SourceRepo:            repo,
			Slug:                  RepoToSlug(repo),
			AggregatedDescription: strings.Join(names, ", "),
			ItemCount:             len(items),
			Popularity:            first.Popularity,
			DiscoveredAt:          first.DiscoveredAt,
			LastUpdated:           first.LastUpdated,
			Origin:                OriginAuto,
		})
	}

	return repos
}

// Plugin holds the plugin fields keyword extraction reads
type Plugin struct {
	Name        string
	Description string
	Keywords    []string
}

var (
	nameSeparators = regexp.MustCompile(`[-_\s/]+`)
	nonAlphanumRE  = regexp.MustCompile(`[^a-z0-9]`)
)

// AggregatePluginKeywords builds the sorted search keyword set of a
// marketplace. It takes name words longer than 2 characters, description
// words longer than 4 characters once punctuation is stripped, and every
// declared keyword.
func AggregatePluginKeywords(plugins []Plugin) []string {
	set := make(map[string]struct{})

	for _, plugin := range plugins {
		for _, word := range nameSeparators.Split(plugin.Name, -1) {
			if normalized := strings.ToLower(strings.TrimSpace(word)); len(normalized) > 2 {
				set[normalized] = struct{}{}
			}
		}

		for _, word := range strings.Fields(plugin.Description) {
			if normalized := nonAlphanumRE.ReplaceAllString(strings.ToLower(word), ""); len(normalized) > 4 {
				set[normalized] = struct{}{}
			}
		}

		for _, keyword := range plugin.Keywords {
			if normalized := strings.ToLower(strings.TrimSpace(keyword)); normalized != "" {
				set[normalized] = struct{}{}
			}
		}
	}

	keywords := make([]string, 0, len(set))
	for keyword := range set {
		keywords = append(keywords, keyword)
	}
	slices.Sort(keywords)
	return keywords
}

// SortByPopularity orders records by descending popularity, unknown counting
// as zero. The sort is stable so equal records keep discovery order.
func SortByPopularity[T Record](records []T) {
	slices.SortStableFunc(records, func(a, b T) int {
		return popularityOrZero(b) - popularityOrZero(a)
	})
}

func popularityOrZero(r Record) int {
	if v := r.PopularityValue(); v != nil {
		return *v
	}
	return 0
}
