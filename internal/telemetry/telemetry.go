package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// PipelineTracerName is the instrumentation name of pipeline spans
const PipelineTracerName = "github.com/stacklok/toolhive-catalog/pipeline"

// Telemetry owns the tracer and meter providers of the process
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	enabled        bool
}

// New creates the providers described by cfg. A nil or disabled cfg yields
// no-op providers. The SDK's internal logging is routed through the default
// slog handler. Call Shutdown to flush pending data.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		return &Telemetry{
			tracerProvider: nil,
			meterProvider:  nil,
		}, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	otel.SetLogger(logr.FromSlogHandler(slog.Default().Handler()))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		slog.Warn("OpenTelemetry export failed", "error", err)
	}))

	opts := []ProviderOption{
		WithServiceName(cfg.GetServiceName()),
		WithServiceVersion(cfg.GetServiceVersion()),
		WithEndpoint(cfg.GetEndpoint()),
		WithInsecure(cfg.Insecure),
	}

	tracerProvider, err := NewTracerProvider(ctx, cfg.Tracing, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	meterProvider, err := NewMeterProvider(ctx, cfg.Metrics, opts...)
	if err != nil {
		if tp, ok := tracerProvider.(*sdktrace.TracerProvider); ok {
			_ = tp.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	slog.Info("Telemetry initialized",
		"service_name", cfg.GetServiceName(),
		"service_version", cfg.GetServiceVersion())

	return &Telemetry{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		enabled:        true,
	}, nil
}

// Enabled reports whether telemetry was configured
func (t *Telemetry) Enabled() bool {
	return t != nil && t.enabled
}

// TracerProvider returns the tracer provider, nil when telemetry is disabled
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if t == nil {
		return nil
	}
	return t.tracerProvider
}

// MeterProvider returns the meter provider, nil when telemetry is disabled
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	if t == nil {
		return nil
	}
	return t.meterProvider
}

// Tracer returns a named tracer, nil when telemetry is disabled
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if t.TracerProvider() == nil {
		return nil
	}
	return t.tracerProvider.Tracer(name, opts...)
}

// Shutdown flushes and stops the SDK providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}

	var errs []error
	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Info("Telemetry shutdown complete")
	return nil
}
