// Package otel holds span helpers and the attribute keys shared by the
// pipeline stages.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on pipeline spans
const (
	AttrPipeline      = attribute.Key("catalog.pipeline")
	AttrRunID         = attribute.Key("catalog.run_id")
	AttrDryRun        = attribute.Key("catalog.dry_run")
	AttrItemLimit     = attribute.Key("catalog.item_limit")
	AttrThreshold     = attribute.Key("catalog.quality_threshold")
	AttrQueryCount    = attribute.Key("catalog.query_count")
	AttrInputCount    = attribute.Key("stage.input_count")
	AttrResultCount   = attribute.Key("stage.result_count")
	AttrFailureCount  = attribute.Key("stage.failure_count")
	AttrRecordSetKey  = attribute.Key("store.key")
	AttrRecordsAdded  = attribute.Key("store.added")
	AttrRecordsUpdate = attribute.Key("store.updated")
	AttrRecordsRemove = attribute.Key("store.removed")
	AttrRecordsTotal  = attribute.Key("store.total")
)

// StartSpan starts a span when tracer is set; otherwise it returns the span
// already in ctx so callers never need a nil check.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span failed. The status
// description stays generic; the details live in the error event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
