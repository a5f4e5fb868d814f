// Package main is the entry point for the ToolHive catalog pipelines.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog/cmd/thv-catalog/app"
	"github.com/stacklok/toolhive-catalog/internal/config"
)

// getLogLevel parses THV_CATALOG_LOG_LEVEL, falling back to LOG_LEVEL.
// Defaults to info if neither is set or the value is invalid.
func getLogLevel() slog.Level {
	v := config.NewEnvViper()
	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// traceHandler injects the OpenTelemetry trace_id and span_id into every
// log record emitted inside a span.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func main() {
	// Logs go to stderr so stdout stays clean for reports and JSON output
	app.LogLevel.Set(getLogLevel())
	baseHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: app.LogLevel})
	handler := &traceHandler{Handler: baseHandler}
	slog.SetDefault(slog.New(handler))

	otel.SetLogger(logr.FromSlogHandler(handler))

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
