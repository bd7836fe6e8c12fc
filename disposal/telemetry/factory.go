package telemetry

import (
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilConfig       = errors.New("telemetry config cannot be nil")
	ErrInvalidConfig   = errors.New("invalid telemetry config")
	ErrInvalidSinkType = errors.New("invalid telemetry sink type")
	ErrTypeEmpty       = errors.New("telemetry sink type cannot be empty")
	ErrNamespaceEmpty  = errors.New("telemetry namespace cannot be empty")
)

// Option customizes factory-built sinks.
type Option func(*options)

type options struct {
	logger   log.Logger
	meter    metric.Meter
	registry *prometheus.Registry
}

// WithLogger sets the logger sinks use for their own failures.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the OTel meter backing the "otel" sink. Defaults to the
// global meter provider scoped by Config.Namespace.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// WithRegistry sets the Prometheus registry backing the "prometheus" sink.
// Defaults to a fresh registry owned by the sink.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *options) { o.registry = registry }
}

// New builds the sink selected by config. A disabled config yields the no-op
// sink without validation so callers can keep a sink wired unconditionally.
//
//nolint:ireturn
func New(config *Config, opts ...Option) (Sink, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	if !config.Enabled {
		return NewNoopSink(), nil
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	o := &options{logger: log.NewNop()}
	for _, opt := range opts {
		opt(o)
	}

	switch config.Type {
	case TypeNoop, "":
		return NewNoopSink(), nil

	case TypeOTel:
		meter := o.meter
		if meter == nil {
			meter = otel.GetMeterProvider().Meter(config.Namespace)
		}

		return NewOTelSink(meter, o.logger)

	case TypePrometheus:
		registry := o.registry
		if registry == nil {
			registry = prometheus.NewRegistry()
		}

		return NewPrometheusSink(config, registry)

	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSinkType, config.Type)
	}
}

// validateConfig checks type and name constraints. Namespace and subsystem
// must stay within Prometheus' metric name charset.
func validateConfig(config *Config) error {
	if config.Type == "" {
		return ErrTypeEmpty
	}

	if config.Namespace == "" {
		return ErrNamespaceEmpty
	}

	if !validMetricToken(config.Namespace) {
		return fmt.Errorf("invalid namespace format: %s", config.Namespace)
	}

	if config.Subsystem != "" && !validMetricToken(config.Subsystem) {
		return fmt.Errorf("invalid subsystem format: %s", config.Subsystem)
	}

	return nil
}

// validMetricToken allows letters, digits, and underscores.
func validMetricToken(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_') {
			return false
		}
	}

	return true
}
