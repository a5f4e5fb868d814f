package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	t.Parallel()

	for _, cfg := range []*Config{nil, {Enabled: false}} {
		tel, err := New(context.Background(), cfg)
		require.NoError(t, err)
		require.NotNil(t, tel)

		assert.False(t, tel.Enabled())
		assert.Nil(t, tel.TracerProvider())
		assert.Nil(t, tel.MeterProvider())
		assert.Nil(t, tel.Tracer("x"))
		assert.NoError(t, tel.Shutdown(context.Background()))
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), &Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true, Sampling: 2},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid telemetry configuration")
}

func TestNew_EnabledWithoutSignals(t *testing.T) {
	t.Parallel()

	tel, err := New(context.Background(), &Config{Enabled: true})
	require.NoError(t, err)

	assert.True(t, tel.Enabled())
	assert.NotNil(t, tel.TracerProvider(), "no-op provider expected")
	assert.NotNil(t, tel.MeterProvider(), "no-op provider expected")
	assert.NotNil(t, tel.Tracer("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestNew_EnabledSignals(t *testing.T) {
	t.Parallel()

	// Exporters connect lazily, so no collector is needed to build providers
	tel, err := New(context.Background(), &Config{
		Enabled:  true,
		Endpoint: "127.0.0.1:4318",
		Insecure: true,
		Tracing:  &TracingConfig{Enabled: true},
		Metrics:  &MetricsConfig{Enabled: true, Interval: "1h"},
	})
	require.NoError(t, err)
	require.True(t, tel.Enabled())

	_, span := tel.Tracer("test").Start(context.Background(), "pipeline.run")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	metrics, err := NewPipelineMetrics(tel.MeterProvider())
	require.NoError(t, err)
	assert.NotNil(t, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Flushing against an absent collector may fail; shutdown must still return
	_ = tel.Shutdown(ctx)
}

func TestTelemetry_NilReceiver(t *testing.T) {
	t.Parallel()

	var tel *Telemetry
	assert.False(t, tel.Enabled())
	assert.Nil(t, tel.TracerProvider())
	assert.Nil(t, tel.MeterProvider())
	assert.Nil(t, tel.Tracer("x"))
	assert.NoError(t, tel.Shutdown(context.Background()))
}
