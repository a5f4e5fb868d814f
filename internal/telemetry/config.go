// Package telemetry wires OpenTelemetry tracing and metrics for the catalog
// pipelines and the trigger API. Both signals are exported over OTLP/HTTP.
package telemetry

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultServiceName is the service name reported when none is configured
	DefaultServiceName = "thv-catalog"

	// DefaultEndpoint is the OTLP/HTTP collector address
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling samples every pipeline run; runs are rare and long
	DefaultSampling = 1.0

	// DefaultMetricsInterval is how often metrics are pushed to the collector
	DefaultMetricsInterval = 60 * time.Second
)

// Config is the telemetry section of the configuration file
type Config struct {
	// Enabled turns telemetry on. When false no providers are created.
	Enabled bool `yaml:"enabled"`

	ServiceName    string `yaml:"serviceName,omitempty"`
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the collector "host:port"; the /v1/traces and /v1/metrics
	// paths are added by the exporters.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure sends telemetry over plain HTTP
	Insecure bool `yaml:"insecure,omitempty"`

	Tracing *TracingConfig `yaml:"tracing,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig configures traces
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of runs traced, between 0 and 1. Zero means the default.
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig configures metrics
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval is the export period as a Go duration string
	Interval string `yaml:"interval,omitempty"`
}

// GetServiceName returns the service name, using default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the service version, or "unknown"
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the endpoint, using default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetSampling returns the sampling ratio. An unset ratio cannot be told
// apart from an explicit zero, so zero means the default.
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetInterval returns the metric export interval
func (c *MetricsConfig) GetInterval() time.Duration {
	if c.Interval == "" {
		return DefaultMetricsInterval
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return DefaultMetricsInterval
	}
	return d
}

// Validate validates the telemetry configuration. A nil or disabled
// configuration is always valid.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

// Validate validates the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}
	return nil
}

// Validate validates the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled || c.Interval == "" {
		return nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval %q: %w", c.Interval, err)
	}
	if d <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	return nil
}
