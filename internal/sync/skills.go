package sync

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/otel"
	"github.com/stacklok/toolhive-catalog/internal/sources"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
	"github.com/stacklok/toolhive-catalog/internal/validators"
)

func describeSkillRepo(r catalog.SkillRepo) string {
	noun := "skills"
	if r.ItemCount == 1 {
		noun = "skill"
	}
	return fmt.Sprintf("%d %s: %s", r.ItemCount, noun, r.AggregatedDescription)
}

func (m *defaultManager) runSkills(ctx context.Context, plan runPlan) (*Report, *Error) {
	d, runErr := m.discover(ctx, plan)
	if runErr != nil {
		return nil, runErr
	}
	report := newReport(plan, d)

	var (
		skills   []catalog.Skill
		failures []string
	)
	_ = m.stage(ctx, plan, stageValidate, func(ctx context.Context, span trace.Span) error {
		now := m.now()
		results := make([]validators.Result[catalog.Skill], 0, len(d.contents))
		for _, content := range d.contents {
			results = append(results, validators.ValidateSkill(content, d.popularity.Get(content.SourceRepo), now))
		}
		skills, failures = collectValid(results)

		span.SetAttributes(
			otel.AttrInputCount.Int(len(d.contents)),
			otel.AttrResultCount.Int(len(skills)),
			otel.AttrFailureCount.Int(len(failures)),
		)
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageValidate, telemetry.StageResultOK, len(skills))
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageValidate, telemetry.StageResultFailed, len(failures))
		return nil
	})

	var repos []catalog.SkillRepo
	_ = m.stage(ctx, plan, stageAggregate, func(_ context.Context, span trace.Span) error {
		repos = catalog.AggregateSkillRepos(skills)
		for i := range repos {
			if repos[i].Popularity != nil {
				fetchedAt := d.fetchedAt
				repos[i].PopularityAt = &fetchedAt
			}
		}
		span.SetAttributes(
			otel.AttrInputCount.Int(len(skills)),
			otel.AttrResultCount.Int(len(repos)),
		)
		return nil
	})

	report.Validated = len(skills)
	report.addFailures(d.failures, failures)
	report.Preview = buildPreview(skills, func(s catalog.Skill) string { return s.Name })
	report.RepoPreview = buildPreview(repos, describeSkillRepo)

	skillScope := writer.NewScope()
	for _, hit := range d.hits {
		skillScope.Add(catalog.SkillID(hit.SourceRepo, hit.FilePath))
	}
	skillWriter := writer.NewSkillWriter(m.store).WithClock(m.now)

	summary, runErr := reconcileSet(ctx, m, plan, skillWriter, skills, skillScope)
	report.applySummary(summary)
	if runErr != nil {
		if runErr.Reason == ReasonLoadFailed {
			return nil, runErr
		}
		return report, runErr
	}

	repoScope := writer.NewScope(sources.UniqueRepos(d.hits)...)
	repoWriter := writer.NewSkillRepoWriter(m.store).WithClock(m.now)

	repoSummary, runErr := reconcileSet(ctx, m, plan, repoWriter, repos, repoScope)
	report.SkillRepos = &repoSummary
	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
