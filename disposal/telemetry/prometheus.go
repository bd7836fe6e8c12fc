package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink maps sink signals onto a fixed set of Prometheus collectors.
//
// Event properties and metric labels are deliberately NOT mapped to Prometheus
// labels: callers attach unbounded values (operation IDs) and a label per
// property would explode series cardinality. Only the signal name survives.
type PrometheusSink struct {
	registry *prometheus.Registry

	eventsTotal     *prometheus.CounterVec
	metricValue     *prometheus.GaugeVec
	durationSeconds *prometheus.HistogramVec
	exceptionsTotal *prometheus.CounterVec
}

// Compile-time assertion: *PrometheusSink implements Sink.
var _ Sink = (*PrometheusSink)(nil)

// NewPrometheusSink builds a sink registering its collectors on registry.
// Metric names compose as namespace_subsystem_name.
func NewPrometheusSink(config *Config, registry *prometheus.Registry) (*PrometheusSink, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	if registry == nil {
		return nil, fmt.Errorf("%w: registry cannot be nil", ErrInvalidConfig)
	}

	s := &PrometheusSink{
		registry: registry,
		eventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "events_total",
				Help:      "Disposal lifecycle events by name.",
			},
			[]string{"event"},
		),
		metricValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "metric_value",
				Help:      "Last value of point-in-time disposal measurements.",
			},
			[]string{"metric"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "duration_seconds",
				Help:      "Distribution of disposal duration measurements.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"metric"},
		),
		exceptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "exceptions_total",
				Help:      "Errors reported by disposal teardowns and the coordinator.",
			},
			[]string{"type"},
		),
	}

	collectors := []prometheus.Collector{
		s.eventsTotal,
		s.metricValue,
		s.durationSeconds,
		s.exceptionsTotal,
	}

	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	return s, nil
}

func (s *PrometheusSink) TrackEvent(_ context.Context, name string, _ map[string]string) {
	s.eventsTotal.WithLabelValues(name).Inc()
}

func (s *PrometheusSink) TrackMetric(_ context.Context, name string, value float64, _ map[string]string) {
	if isDistribution(name) {
		s.durationSeconds.WithLabelValues(name).Observe(value)

		return
	}

	s.metricValue.WithLabelValues(name).Set(value)
}

func (s *PrometheusSink) TrackException(_ context.Context, err error, _ map[string]string) {
	if err == nil {
		return
	}

	s.exceptionsTotal.WithLabelValues(fmt.Sprintf("%T", err)).Inc()
}

// Registry exposes the backing registry so hosts can mount it on their
// /metrics handler.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}
