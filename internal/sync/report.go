package sync

import (
	"slices"
	"time"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
)

const (
	// MaxReportedFailures bounds the failure messages carried by a report
	MaxReportedFailures = 10

	// PreviewSize is the number of top records carried by a report
	PreviewSize = 10
)

// Report summarizes one pipeline run
type Report struct {
	RunID    string `json:"runId"`
	Pipeline string `json:"pipeline"`
	DryRun   bool   `json:"dryRun"`

	// TotalFound counts the deduplicated search hits before the item limit
	TotalFound int `json:"totalFound"`
	// Discovered counts the search hits that were processed
	Discovered int `json:"discovered"`
	// ExcludedRepos counts the distinct repositories dropped by the repository filter
	ExcludedRepos int `json:"excludedRepos,omitempty"`
	// Qualified counts the hits whose repository passed the quality gate
	Qualified int `json:"qualified"`
	Fetched   int `json:"fetched"`
	Validated int `json:"validated"`

	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	Total   int `json:"total"`

	FetchFailed      int `json:"fetchFailed"`
	ValidationFailed int `json:"validationFailed"`
	FailedCount      int `json:"failedCount"`

	// Failures holds the first MaxReportedFailures failure messages
	Failures []string `json:"failures,omitempty"`

	// Preview holds the top validated records by popularity
	Preview []PreviewEntry `json:"preview,omitempty"`

	// RepoPreview holds the top skill repositories by popularity
	RepoPreview []PreviewEntry `json:"repoPreview,omitempty"`

	// SkillRepos is the repository summary reconcile of the skills pipeline
	SkillRepos *writer.Summary `json:"skillRepos,omitempty"`

	StartedAt  time.Time `json:"startedAt"`
	DurationMs int64     `json:"durationMs"`
}

// PreviewEntry is one line of the report preview
type PreviewEntry struct {
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Stars       *int   `json:"stars,omitempty"`
}

func newReport(plan runPlan, d *discovery) *Report {
	return &Report{
		RunID:         plan.runID,
		Pipeline:      plan.pipeline,
		DryRun:        plan.dryRun,
		TotalFound:    d.totalFound,
		Discovered:    len(d.hits),
		ExcludedRepos: d.excluded,
		Qualified:     d.qualified,
		Fetched:       len(d.contents),
		FetchFailed:   d.fetchFails,
		StartedAt:     plan.startedAt.UTC(),
	}
}

// addFailures records validation failures and fills the derived counters
func (r *Report) addFailures(fetchFailures, validationFailures []string) {
	r.ValidationFailed = len(validationFailures)
	r.FailedCount = r.FetchFailed + r.ValidationFailed

	all := slices.Concat(fetchFailures, validationFailures)
	if len(all) > MaxReportedFailures {
		all = all[:MaxReportedFailures]
	}
	r.Failures = all
}

func (r *Report) applySummary(summary writer.Summary) {
	r.Added = summary.Added
	r.Updated = summary.Updated
	r.Removed = summary.Removed
	r.Total = summary.Total
}

// buildPreview returns the PreviewSize most popular records, ties in discovery order
func buildPreview[T catalog.Record](records []T, describe func(T) string) []PreviewEntry {
	sorted := slices.Clone(records)
	catalog.SortByPopularity(sorted)
	if len(sorted) > PreviewSize {
		sorted = sorted[:PreviewSize]
	}

	preview := make([]PreviewEntry, 0, len(sorted))
	for _, record := range sorted {
		preview = append(preview, PreviewEntry{
			Key:         record.Key(),
			Description: describe(record),
			Stars:       record.PopularityValue(),
		})
	}
	return preview
}
