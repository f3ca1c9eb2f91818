package observability

import (
	"fmt"
	"time"
)

const (
	// EndpointStdout writes telemetry to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"
)

// Float64Ptr returns a pointer to v, for optional configuration fields.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the configuration for tracing and metrics export.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled"`

	// Service identifies the process in exported telemetry.
	Service ServiceConfig `koanf:"service"`

	// Environment indicates the deployment environment (e.g., production, development).
	Environment string `koanf:"environment"`

	// Endpoint is the OTLP collector address, or "stdout".
	Endpoint string `koanf:"endpoint"`

	// Protocol selects OTLP transport: "http" or "grpc".
	Protocol string `koanf:"protocol"`

	// Insecure disables TLS towards the collector.
	Insecure bool `koanf:"insecure"`

	// Headers are sent with every export request (e.g., API keys).
	Headers map[string]string `koanf:"headers"`

	// SampleRate is the trace sampling ratio in [0, 1]. Nil means 1.
	SampleRate *float64 `koanf:"sample_rate"`

	// BatchTimeout is the maximum delay before a span batch is exported.
	BatchTimeout time.Duration `koanf:"batch_timeout"`

	// MetricInterval is the periodic metric export interval.
	MetricInterval time.Duration `koanf:"metric_interval"`

	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration `koanf:"export_timeout"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	// Name is required when observability is enabled.
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == nil {
		c.SampleRate = Float64Ptr(1.0)
	}

	dev := c.Environment == EnvironmentDevelopment || c.Endpoint == EndpointStdout
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 5 * time.Second
		if dev {
			c.BatchTimeout = 500 * time.Millisecond
		}
	}
	if c.ExportTimeout == 0 {
		c.ExportTimeout = 30 * time.Second
		if dev {
			c.ExportTimeout = 10 * time.Second
		}
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 60 * time.Second
		if dev {
			c.MetricInterval = 10 * time.Second
		}
	}
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol %q: %w", c.Protocol, ErrInvalidProtocol)
	}
	if c.SampleRate != nil && (*c.SampleRate < 0 || *c.SampleRate > 1) {
		return fmt.Errorf("sample rate %v: %w", *c.SampleRate, ErrInvalidSampleRate)
	}
	return nil
}
