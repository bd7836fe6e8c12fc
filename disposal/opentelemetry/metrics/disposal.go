package metrics

import (
	"context"
)

// Pre-configured disposal metrics emitted by the coordinator.
var (
	// MetricDisposalsSucceeded counts teardowns that completed successfully.
	MetricDisposalsSucceeded = Metric{
		Name:        "disposals_succeeded",
		Unit:        "1",
		Description: "Number of resource disposals that completed successfully.",
	}

	// MetricDisposalsFailed counts teardowns that failed, timed out, or panicked.
	MetricDisposalsFailed = Metric{
		Name:        "disposals_failed",
		Unit:        "1",
		Description: "Number of resource disposals that failed, timed out, or panicked.",
	}

	// MetricDisposalsDeferred counts teardowns rejected while the circuit breaker was open.
	MetricDisposalsDeferred = Metric{
		Name:        "disposals_deferred",
		Unit:        "1",
		Description: "Number of resource disposals deferred because the circuit breaker was open.",
	}

	// MetricDisposalsActive gauges teardowns currently in flight.
	MetricDisposalsActive = Metric{
		Name:        "disposals_active",
		Unit:        "1",
		Description: "Number of resource disposals currently in flight.",
	}

	// MetricDisposalDuration observes end-to-end teardown duration in seconds.
	MetricDisposalDuration = Metric{
		Name:        "disposal_duration_seconds",
		Unit:        "s",
		Description: "End-to-end duration of a resource disposal in seconds.",
		Buckets:     DefaultDurationBuckets,
	}

	// MetricCircuitBreakerTrips counts closed-to-open circuit breaker transitions.
	MetricCircuitBreakerTrips = Metric{
		Name:        "circuit_breaker_trips",
		Unit:        "1",
		Description: "Number of times the disposal circuit breaker tripped open.",
	}

	// MetricBatchSize observes how many units each DisposeAll batch carried.
	MetricBatchSize = Metric{
		Name:        "disposal_batch_size",
		Unit:        "1",
		Description: "Number of units per disposal batch.",
		Buckets:     DefaultBatchBuckets,
	}
)

// RecordDisposalSucceeded increments the success counter.
func (f *MetricsFactory) RecordDisposalSucceeded(ctx context.Context) error {
	b, err := f.Counter(MetricDisposalsSucceeded)
	if err != nil {
		return err
	}

	return b.AddOne(ctx)
}

// RecordDisposalFailed increments the failure counter, labeled with the
// failure reason ("error", "timeout", "panic", ...).
func (f *MetricsFactory) RecordDisposalFailed(ctx context.Context, reason string) error {
	b, err := f.Counter(MetricDisposalsFailed)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"reason": reason}).AddOne(ctx)
}

// RecordDisposalDeferred increments the deferred counter.
func (f *MetricsFactory) RecordDisposalDeferred(ctx context.Context) error {
	b, err := f.Counter(MetricDisposalsDeferred)
	if err != nil {
		return err
	}

	return b.AddOne(ctx)
}

// RecordActiveDisposals records the current number of in-flight teardowns.
func (f *MetricsFactory) RecordActiveDisposals(ctx context.Context, active int64) error {
	b, err := f.Gauge(MetricDisposalsActive)
	if err != nil {
		return err
	}

	return b.Set(ctx, float64(active))
}

// RecordDisposalDuration observes one teardown duration, labeled with the
// final status.
func (f *MetricsFactory) RecordDisposalDuration(ctx context.Context, seconds float64, status string) error {
	b, err := f.Histogram(MetricDisposalDuration)
	if err != nil {
		return err
	}

	return b.WithLabels(map[string]string{"status": status}).Record(ctx, seconds)
}

// RecordCircuitBreakerTrip increments the trip counter.
func (f *MetricsFactory) RecordCircuitBreakerTrip(ctx context.Context) error {
	b, err := f.Counter(MetricCircuitBreakerTrips)
	if err != nil {
		return err
	}

	return b.AddOne(ctx)
}

// RecordBatchSize observes the unit count of one disposal batch.
func (f *MetricsFactory) RecordBatchSize(ctx context.Context, size int) error {
	b, err := f.Histogram(MetricBatchSize)
	if err != nil {
		return err
	}

	return b.Record(ctx, float64(size))
}
