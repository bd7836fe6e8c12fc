package telemetry

import (
	"context"
)

// Sink receives disposal lifecycle signals. Implementations must be safe for
// concurrent use and must not block; the coordinator calls them inline on
// disposal paths.
type Sink interface {
	// TrackEvent records a named occurrence with optional string properties
	// (unit_id, operation_id, reason, ...).
	TrackEvent(ctx context.Context, name string, properties map[string]string)

	// TrackMetric records a numeric measurement with optional labels.
	TrackMetric(ctx context.Context, name string, value float64, labels map[string]string)

	// TrackException records an error surfaced by a teardown phase or the
	// coordinator itself, with optional string properties for context.
	TrackException(ctx context.Context, err error, properties map[string]string)
}

// Sink types accepted by the factory.
const (
	TypeNoop       = "noop"
	TypeOTel       = "otel"
	TypePrometheus = "prometheus"
)

// Config selects and parameterizes the sink implementation.
type Config struct {
	// Type is the sink implementation: "noop", "otel", or "prometheus".
	Type string `yaml:"type" json:"type"`

	// Enabled disables all telemetry when false; the factory returns the
	// no-op sink regardless of Type.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace prefixes Prometheus metric names and names the OTel
	// instrumentation scope.
	Namespace string `yaml:"namespace" json:"namespace"`

	// Subsystem optionally extends the Prometheus prefix.
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig returns the factory defaults: enabled, no-op sink.
func DefaultConfig() *Config {
	return &Config{
		Type:      TypeNoop,
		Enabled:   true,
		Namespace: "disposal",
		Subsystem: "",
	}
}
