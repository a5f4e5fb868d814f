package writer

import (
	"time"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
)

// MergeMarketplace refreshes the discovered fields of a stored marketplace
func MergeMarketplace(stored, discovered catalog.Marketplace, now time.Time) catalog.Marketplace {
	stored.HumanDescription = discovered.HumanDescription
	stored.ItemCount = discovered.ItemCount
	stored.Categories = discovered.Categories
	stored.PluginKeywords = discovered.PluginKeywords
	stored.LastUpdated = timePtr(now)
	if discovered.Popularity != nil {
		stored.Popularity = discovered.Popularity
		stored.PopularityAt = discovered.PopularityAt
	}
	return stored
}

// MergeSkill refreshes the discovered fields of a stored skill
func MergeSkill(stored, discovered catalog.Skill, now time.Time) catalog.Skill {
	stored.Name = discovered.Name
	stored.Description = discovered.Description
	stored.RelativePath = discovered.RelativePath
	stored.License = discovered.License
	stored.InstallCommand = discovered.InstallCommand
	stored.LastUpdated = timePtr(now)
	if discovered.Popularity != nil {
		stored.Popularity = discovered.Popularity
	}
	return stored
}

// MergeSkillRepo refreshes the discovered fields of a stored skill repository
func MergeSkillRepo(stored, discovered catalog.SkillRepo, now time.Time) catalog.SkillRepo {
	stored.AggregatedDescription = discovered.AggregatedDescription
	stored.ItemCount = discovered.ItemCount
	stored.LastUpdated = timePtr(now)
	if discovered.Popularity != nil {
		stored.Popularity = discovered.Popularity
		stored.PopularityAt = discovered.PopularityAt
	}
	return stored
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}
