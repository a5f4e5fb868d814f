package sync

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/otel"
	"github.com/stacklok/toolhive-catalog/internal/ratelimit"
	"github.com/stacklok/toolhive-catalog/internal/sources"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
	"github.com/stacklok/toolhive-catalog/internal/validators"
)

func (m *defaultManager) runMarketplaces(ctx context.Context, plan runPlan) (*Report, *Error) {
	d, runErr := m.discover(ctx, plan)
	if runErr != nil {
		return nil, runErr
	}
	report := newReport(plan, d)

	inspector := sources.NewRepositoryInspector(m.api, m.retryOptions(plan.cfg.Executor.Validation, "repository"))
	validator, err := validators.NewMarketplaceValidator(inspector, validators.WithClock(m.now))
	if err != nil {
		return nil, newError(ReasonConfiguration, err, "Failed to create marketplace validator: %v", err)
	}

	var (
		records  []catalog.Marketplace
		failures []string
	)
	_ = m.stage(ctx, plan, stageValidate, func(ctx context.Context, span trace.Span) error {
		settled := ratelimit.Batch(ctx, d.contents,
			func(ctx context.Context, content catalog.CandidateContent) (validators.Result[catalog.Marketplace], error) {
				return validator.Validate(ctx, content), nil
			}, m.batchOptions(plan.cfg.Executor.Validation))

		results := make([]validators.Result[catalog.Marketplace], len(settled))
		for i, s := range settled {
			results[i] = s.Value
			if !s.OK() {
				results[i] = validators.Result[catalog.Marketplace]{
					SourceRepo: d.contents[i].SourceRepo,
					FilePath:   d.contents[i].FilePath,
					Errors:     []string{s.Err.Error()},
				}
			}
		}
		records, failures = collectValid(results)

		span.SetAttributes(
			otel.AttrInputCount.Int(len(d.contents)),
			otel.AttrResultCount.Int(len(records)),
			otel.AttrFailureCount.Int(len(failures)),
		)
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageValidate, telemetry.StageResultOK, len(records))
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageValidate, telemetry.StageResultFailed, len(failures))
		return nil
	})

	annotatePopularity(records, d)

	report.Validated = len(records)
	report.addFailures(d.failures, failures)
	report.Preview = buildPreview(records, func(r catalog.Marketplace) string { return r.HumanDescription })

	// Every repository that came back from search is in scope, so stored
	// marketplaces that now fail the gate or validation are removed.
	scope := writer.NewScope(sources.UniqueRepos(d.hits)...)
	w := writer.NewMarketplaceWriter(m.store).WithClock(m.now)

	summary, runErr := reconcileSet(ctx, m, plan, w, records, scope)
	report.applySummary(summary)
	if runErr != nil {
		if runErr.Reason == ReasonLoadFailed {
			return nil, runErr
		}
		return report, runErr
	}
	return report, nil
}

// annotatePopularity copies the fetched star counts onto the records
func annotatePopularity(records []catalog.Marketplace, d *discovery) {
	for i := range records {
		stars := d.popularity.Get(records[i].SourceRepo)
		records[i].Popularity = stars
		if stars != nil {
			fetchedAt := d.fetchedAt
			records[i].PopularityAt = &fetchedAt
		}
	}
}
