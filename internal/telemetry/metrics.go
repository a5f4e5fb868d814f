package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetricsMeterName is the name used for the pipeline metrics meter
const PipelineMetricsMeterName = "github.com/stacklok/toolhive-catalog/pipeline"

// Stage item results
const (
	StageResultOK       = "ok"
	StageResultFailed   = "failed"
	StageResultFiltered = "filtered"
)

// PipelineMetrics holds the instruments recorded by pipeline runs
type PipelineMetrics struct {
	runDuration metric.Float64Histogram
	stageItems  metric.Int64Counter
	recordsSet  metric.Int64Gauge
}

// NewPipelineMetrics creates the pipeline instruments on provider.
// If provider is nil, it returns nil and every record call is a no-op.
func NewPipelineMetrics(provider metric.MeterProvider) (*PipelineMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(PipelineMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"thv_catalog_run_duration_seconds",
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 900),
	)
	if err != nil {
		return nil, err
	}

	stageItems, err := meter.Int64Counter(
		"thv_catalog_stage_items_total",
		metric.WithDescription("Items processed by each pipeline stage"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, err
	}

	recordsSet, err := meter.Int64Gauge(
		"thv_catalog_records_total",
		metric.WithDescription("Number of records in each persisted set"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		runDuration: runDuration,
		stageItems:  stageItems,
		recordsSet:  recordsSet,
	}, nil
}

// RecordRunDuration records how long a pipeline run took
func (m *PipelineMetrics) RecordRunDuration(ctx context.Context, pipeline string, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("outcome", outcome),
	))
}

// RecordStageItems adds count items with result to the stage counter
func (m *PipelineMetrics) RecordStageItems(ctx context.Context, pipeline, stage, result string, count int) {
	if m == nil || m.stageItems == nil || count <= 0 {
		return
	}

	m.stageItems.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("stage", stage),
		attribute.String("result", result),
	))
}

// RecordSetSize records the number of records stored under key
func (m *PipelineMetrics) RecordSetSize(ctx context.Context, key string, count int) {
	if m == nil || m.recordsSet == nil {
		return
	}

	m.recordsSet.Record(ctx, int64(count), metric.WithAttributes(
		attribute.String("set", key),
	))
}
