package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/opentelemetry/metrics"
	"go.opentelemetry.io/otel/metric"
)

// otelSink maps sink signals onto OpenTelemetry instruments: events become
// counters, measurements become gauges or histograms, exceptions become a
// counter labeled by error type.
type otelSink struct {
	factory *metrics.MetricsFactory
	logger  log.Logger
}

// NewOTelSink builds a sink over an instrument factory scoped to meter.
//
//nolint:ireturn
func NewOTelSink(meter metric.Meter, logger log.Logger) (Sink, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	factory, err := metrics.NewMetricsFactory(meter, logger)
	if err != nil {
		return nil, fmt.Errorf("build metrics factory: %w", err)
	}

	return &otelSink{factory: factory, logger: logger}, nil
}

// exceptionsMetric counts errors reported via TrackException.
var exceptionsMetric = metrics.Metric{
	Name:        "disposal_exceptions",
	Unit:        "1",
	Description: "Errors reported by disposal teardowns and the coordinator.",
}

func (s *otelSink) TrackEvent(ctx context.Context, name string, properties map[string]string) {
	var err error

	// Well-known coordinator events land in the pre-declared instruments
	// and keep their per-operation properties out of the label set, since
	// unit and operation IDs are unbounded. Unknown events record ad hoc
	// with properties as attributes.
	switch name {
	case EventDisposalSucceeded:
		err = s.factory.RecordDisposalSucceeded(ctx)
	case EventDisposalDeferred:
		err = s.factory.RecordDisposalDeferred(ctx)
	case EventDisposalTimedOut:
		err = s.factory.RecordDisposalFailed(ctx, "timeout")
	case EventAdmissionTimeout:
		err = s.factory.RecordDisposalFailed(ctx, "admission_timeout")
	case EventDisposalCancelled:
		err = s.factory.RecordDisposalFailed(ctx, "cancelled")
	case EventBreakerTripped:
		err = s.factory.RecordCircuitBreakerTrip(ctx)
	case EventPrepareFailed, EventCleanupFailed, EventCoordinatorHealth, EventCoordinatorClosed:
		err = s.count(ctx, name, nil)
	default:
		err = s.count(ctx, name, properties)
	}

	if err != nil {
		s.logger.Log(ctx, log.LevelWarn, "event not recorded", log.String("event", name), log.Err(err))
	}
}

func (s *otelSink) TrackMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	var err error

	switch name {
	case MetricDisposalDuration:
		err = s.factory.RecordDisposalDuration(ctx, value, labels["status"])
	case MetricActiveDisposals:
		err = s.factory.RecordActiveDisposals(ctx, int64(value))
	case MetricBatchSize:
		err = s.factory.RecordBatchSize(ctx, int(value))
	default:
		err = s.measure(ctx, name, value, labels)
	}

	if err != nil {
		s.logger.Log(ctx, log.LevelWarn, "metric not recorded", log.String("metric", name), log.Err(err))
	}
}

func (s *otelSink) count(ctx context.Context, name string, labels map[string]string) error {
	counter, err := s.factory.Counter(metrics.Metric{Name: name, Unit: "1"})
	if err != nil {
		return err
	}

	return counter.WithLabels(labels).AddOne(ctx)
}

// measure records an ad hoc measurement, routed by name shape.
func (s *otelSink) measure(ctx context.Context, name string, value float64, labels map[string]string) error {
	if isDistribution(name) {
		hist, err := s.factory.Histogram(metrics.Metric{Name: name})
		if err != nil {
			return err
		}

		return hist.WithLabels(labels).Record(ctx, value)
	}

	gauge, err := s.factory.Gauge(metrics.Metric{Name: name})
	if err != nil {
		return err
	}

	return gauge.WithLabels(labels).Set(ctx, value)
}

func (s *otelSink) TrackException(ctx context.Context, err error, _ map[string]string) {
	if err == nil {
		return
	}

	counter, cerr := s.factory.Counter(exceptionsMetric)
	if cerr != nil {
		s.logger.Log(ctx, log.LevelWarn, "exception not recorded", log.Err(cerr))

		return
	}

	// Only the error type becomes a label. Per-operation properties are
	// unbounded and belong in logs, not in the timeseries.
	labels := map[string]string{"type": fmt.Sprintf("%T", err)}

	if aerr := counter.WithLabels(labels).AddOne(ctx); aerr != nil {
		s.logger.Log(ctx, log.LevelWarn, "exception not recorded", log.Err(aerr))
	}
}

// isDistribution routes measurement names that describe spreads (durations,
// sizes) to histograms; everything else records as a point-in-time gauge.
func isDistribution(name string) bool {
	nameL := strings.ToLower(name)

	for _, marker := range []string{"duration", "latency", "seconds", "size"} {
		if strings.Contains(nameL, marker) {
			return true
		}
	}

	return false
}
