package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog/internal/catalog"
	"github.com/stacklok/toolhive-catalog/internal/otel"
	"github.com/stacklok/toolhive-catalog/internal/sources"
	"github.com/stacklok/toolhive-catalog/internal/sync/writer"
	"github.com/stacklok/toolhive-catalog/internal/telemetry"
	"github.com/stacklok/toolhive-catalog/internal/validators"
)

// discovery is everything the shared stages produce before validation
type discovery struct {
	// hits are the search hits of the repositories kept by the item limit
	hits []catalog.DiscoveryHit
	// candidates are the hits that passed the repository filter
	candidates []catalog.DiscoveryHit
	excluded   int
	totalFound int
	qualified  int
	popularity catalog.PopularityMap
	fetchedAt  time.Time
	contents   []catalog.CandidateContent
	failures   []string
	fetchFails int
}

// discover runs search, the repository filter, popularity lookup, the
// quality gate and the content fetch. Each stage only starts once every item of the previous one settled.
func (m *defaultManager) discover(ctx context.Context, plan runPlan) (*discovery, *Error) {
	d := &discovery{}

	err := m.stage(ctx, plan, stageSearch, func(ctx context.Context, span trace.Span) error {
		hits, err := sources.NewCatalogSearcher(m.api).Search(ctx, plan.queries)
		if err != nil {
			return err
		}
		d.totalFound = len(hits)
		d.hits = sources.LimitRepos(hits, plan.limit)
		span.SetAttributes(otel.AttrResultCount.Int(len(d.hits)))
		return nil
	})
	if err != nil {
		return nil, searchError(err)
	}

	d.candidates = d.hits
	if !plan.filter.Empty() {
		_ = m.stage(ctx, plan, stageFilter, func(ctx context.Context, span trace.Span) error {
			d.candidates, d.excluded = plan.filter.Apply(d.hits)
			span.SetAttributes(
				otel.AttrInputCount.Int(len(d.hits)),
				otel.AttrResultCount.Int(len(d.candidates)),
			)
			m.metrics.RecordStageItems(ctx, plan.pipeline, stageFilter, telemetry.StageResultOK, len(d.candidates))
			m.metrics.RecordStageItems(ctx, plan.pipeline, stageFilter, telemetry.StageResultFiltered,
				len(d.hits)-len(d.candidates))
			slog.Info("Repository filter applied",
				"pipeline", plan.pipeline,
				"kept", len(d.candidates),
				"excluded_repos", d.excluded)
			return nil
		})
	}

	repos := sources.UniqueRepos(d.candidates)
	_ = m.stage(ctx, plan, stagePopularity, func(ctx context.Context, span trace.Span) error {
		policy := plan.cfg.Executor.Popularity
		fetcher := sources.NewPopularityFetcher(m.api, m.retryOptions(policy, "popularity"), m.batchOptions(policy))
		d.popularity = fetcher.FetchMany(ctx, repos)
		d.fetchedAt = m.now().UTC()

		known := 0
		for _, stars := range d.popularity {
			if stars != nil {
				known++
			}
		}
		span.SetAttributes(
			otel.AttrInputCount.Int(len(repos)),
			otel.AttrResultCount.Int(known),
			otel.AttrFailureCount.Int(len(repos)-known),
		)
		return nil
	})

	var passed []catalog.DiscoveryHit
	_ = m.stage(ctx, plan, stageGate, func(ctx context.Context, span trace.Span) error {
		passed = sources.FilterByPopularity(d.candidates, d.popularity, plan.threshold)
		d.qualified = len(passed)
		filtered := len(d.candidates) - len(passed)
		span.SetAttributes(
			otel.AttrInputCount.Int(len(d.candidates)),
			otel.AttrResultCount.Int(len(passed)),
		)
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageGate, telemetry.StageResultOK, len(passed))
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageGate, telemetry.StageResultFiltered, filtered)
		slog.Info("Quality gate applied",
			"pipeline", plan.pipeline,
			"threshold", plan.threshold,
			"passed", len(passed),
			"filtered", filtered)
		return nil
	})

	_ = m.stage(ctx, plan, stageFetch, func(ctx context.Context, span trace.Span) error {
		policy := plan.cfg.Executor.Content
		fetcher := sources.NewContentFetcher(m.api, m.retryOptions(policy, "content"), m.batchOptions(policy))
		contents, failures := fetcher.FetchAll(ctx, passed)
		d.contents = contents
		d.fetchFails = len(failures)
		for _, f := range failures {
			d.failures = append(d.failures, f.Error())
		}
		span.SetAttributes(
			otel.AttrInputCount.Int(len(passed)),
			otel.AttrResultCount.Int(len(contents)),
			otel.AttrFailureCount.Int(len(failures)),
		)
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageFetch, telemetry.StageResultOK, len(contents))
		m.metrics.RecordStageItems(ctx, plan.pipeline, stageFetch, telemetry.StageResultFailed, len(failures))
		return nil
	})

	if ctx.Err() != nil {
		return nil, newError(ReasonCancelled, ctx.Err(), "Run cancelled: %v", ctx.Err())
	}
	return d, nil
}

// stage runs fn inside a child span of the run
func (m *defaultManager) stage(
	ctx context.Context, plan runPlan, name string, fn func(ctx context.Context, span trace.Span) error,
) error {
	ctx, span := otel.StartSpan(ctx, m.tracer, name,
		trace.WithAttributes(otel.AttrPipeline.String(plan.pipeline)))
	defer span.End()

	err := fn(ctx, span)
	otel.RecordError(span, err)
	return err
}

// reconcileSet runs the writer inside the reconcile span and maps its errors
func reconcileSet[T catalog.Record](
	ctx context.Context,
	m *defaultManager,
	plan runPlan,
	w *writer.SetWriter[T],
	records []T,
	scope writer.Scope,
) (writer.Summary, *Error) {
	var summary writer.Summary
	err := m.stage(ctx, plan, stageReconcile, func(ctx context.Context, span trace.Span) error {
		var err error
		summary, err = w.Reconcile(ctx, records, scope, plan.dryRun)
		span.SetAttributes(
			otel.AttrRecordSetKey.String(w.Key()),
			otel.AttrRecordsAdded.Int(summary.Added),
			otel.AttrRecordsUpdate.Int(summary.Updated),
			otel.AttrRecordsRemove.Int(summary.Removed),
			otel.AttrRecordsTotal.Int(summary.Total),
		)
		return err
	})

	var loadErr *writer.LoadError
	switch {
	case errors.As(err, &loadErr):
		return summary, newError(ReasonLoadFailed, err, "Failed to load %s: %v", w.Key(), err)
	case err != nil:
		return summary, newError(ReasonPersistFailed, err, "Failed to persist %s: %v", w.Key(), err)
	}

	if !plan.dryRun {
		m.metrics.RecordSetSize(ctx, w.Key(), summary.Total)
	}
	return summary, nil
}

// collectValid keeps the valid records, the first one per key, and formats
// the invalid ones as failure messages
func collectValid[T catalog.Record](results []validators.Result[T]) ([]T, []string) {
	seen := make(map[string]struct{}, len(results))
	var (
		records  []T
		failures []string
	)
	for _, result := range results {
		if !result.Valid() {
			failures = append(failures, fmt.Sprintf("%s/%s: %s",
				result.SourceRepo, result.FilePath, strings.Join(result.Errors, "; ")))
			continue
		}
		key := (*result.Record).Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		records = append(records, *result.Record)
	}
	return records, failures
}
