package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// ProviderOption configures tracer and meter provider creation
type ProviderOption func(*providerConfig)

type providerConfig struct {
	serviceName    string
	serviceVersion string
	endpoint       string
	insecure       bool
}

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceName = name
	}
}

// WithServiceVersion sets the service.version resource attribute
func WithServiceVersion(version string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.serviceVersion = version
	}
}

// WithEndpoint sets the collector endpoint
func WithEndpoint(endpoint string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.endpoint = endpoint
	}
}

// WithInsecure exports over plain HTTP
func WithInsecure(insecure bool) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.insecure = insecure
	}
}

func newProviderConfig(opts []ProviderOption) *providerConfig {
	cfg := &providerConfig{
		serviceName:    DefaultServiceName,
		serviceVersion: "unknown",
		endpoint:       DefaultEndpoint,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (cfg *providerConfig) resource(ctx context.Context) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.serviceName),
			semconv.ServiceVersion(cfg.serviceVersion),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// NewTracerProvider creates an OTLP tracer provider and installs it globally
// together with the W3C propagators. It returns a no-op provider when tracing
// is disabled. The caller owns shutdown of SDK providers.
func NewTracerProvider(ctx context.Context, tracing *TracingConfig, opts ...ProviderOption) (trace.TracerProvider, error) {
	if tracing == nil || !tracing.Enabled {
		slog.Debug("Tracing disabled, using no-op tracer provider")
		return tracenoop.NewTracerProvider(), nil
	}

	cfg := newProviderConfig(opts)
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tracing.GetSampling())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.insecure {
		slog.Warn("Tracing uses an insecure connection, telemetry is sent over plain HTTP")
	}
	slog.Info("Tracing initialized", "endpoint", cfg.endpoint, "sampling_ratio", tracing.GetSampling())

	return tp, nil
}

// NewMeterProvider creates an OTLP meter provider with a periodic reader and
// installs it globally. It returns a no-op provider when metrics are
// disabled. The caller owns shutdown of SDK providers.
func NewMeterProvider(ctx context.Context, metrics *MetricsConfig, opts ...ProviderOption) (metric.MeterProvider, error) {
	if metrics == nil || !metrics.Enabled {
		slog.Debug("Metrics disabled, using no-op meter provider")
		return metricnoop.NewMeterProvider(), nil
	}

	cfg := newProviderConfig(opts)
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, err
	}

	exporterOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint)}
	if cfg.insecure {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metrics.GetInterval()))),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "endpoint", cfg.endpoint, "interval", metrics.GetInterval())

	return mp, nil
}
