//go:build unit

package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// newTestFactory creates a MetricsFactory backed by a real SDK meter provider
// with a ManualReader. The ManualReader lets us export and inspect actual
// metric data recorded by the instruments.
func newTestFactory(t *testing.T) (*MetricsFactory, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := provider.Meter("test")

	factory, err := NewMetricsFactory(meter, log.NewNop())
	require.NoError(t, err)

	return factory, reader
}

// collectMetrics is a convenience wrapper that calls reader.Collect and returns
// the ResourceMetrics payload.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

// findMetricByName walks the collected ResourceMetrics and returns the first
// Metrics entry whose Name matches. Returns nil if not found.
func findMetricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

// sumDataPoints extracts data points from a Sum metric.
func sumDataPoints(t *testing.T, m *metricdata.Metrics) []metricdata.DataPoint[int64] {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64] data, got %T", m.Data)

	return sum.DataPoints
}

// gaugeDataPoints extracts data points from a Gauge metric.
func gaugeDataPoints(t *testing.T, m *metricdata.Metrics) []metricdata.DataPoint[float64] {
	t.Helper()

	gauge, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok, "expected Gauge[float64] data, got %T", m.Data)

	return gauge.DataPoints
}

// histDataPoints extracts data points from a Histogram metric.
func histDataPoints(t *testing.T, m *metricdata.Metrics) []metricdata.HistogramDataPoint[float64] {
	t.Helper()

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok, "expected Histogram[float64] data, got %T", m.Data)

	return hist.DataPoints
}

// hasAttribute checks whether the attribute set contains a specific string key/value.
func hasAttribute(attrs attribute.Set, key, value string) bool {
	v, ok := attrs.Value(attribute.Key(key))
	if !ok {
		return false
	}

	return v.AsString() == value
}

// ---------------------------------------------------------------------------
// 1. Factory creation
// ---------------------------------------------------------------------------

func TestNewMetricsFactory_NilMeter(t *testing.T) {
	_, err := NewMetricsFactory(nil, log.NewNop())
	assert.ErrorIs(t, err, ErrNilMeter, "nil meter must be rejected")
}

func TestNewMetricsFactory_NilLogger(t *testing.T) {
	// A nil logger is fine -- the factory falls back to the nop logger.
	meter := noop.NewMeterProvider().Meter("test")
	factory, err := NewMetricsFactory(meter, nil)
	require.NoError(t, err)
	assert.NotNil(t, factory)
}

func TestNewNopFactory(t *testing.T) {
	factory := NewNopFactory()
	require.NotNil(t, factory)

	counter, err := factory.Counter(MetricDisposalsSucceeded)
	require.NoError(t, err)
	assert.NoError(t, counter.AddOne(context.Background()))
}

// ---------------------------------------------------------------------------
// 2. Counter recording and verification
// ---------------------------------------------------------------------------

func TestCounter_AddOne_RecordsValue(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(MetricDisposalsSucceeded)
	require.NoError(t, err)

	require.NoError(t, counter.AddOne(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "disposals_succeeded")
	require.NotNil(t, m, "metric disposals_succeeded must exist")

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, int64(1), dps[0].Value)
}

func TestCounter_Add_Accumulates(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{Name: "slots_released"})
	require.NoError(t, err)

	require.NoError(t, counter.Add(context.Background(), 42))
	require.NoError(t, counter.Add(context.Background(), 8))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "slots_released")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, int64(50), dps[0].Value, "counter should accumulate 42+8=50")
}

func TestCounter_NilCounter_ReturnsError(t *testing.T) {
	builder := &CounterBuilder{counter: nil}
	err := builder.AddOne(context.Background())
	assert.ErrorIs(t, err, ErrNilCounter)
}

func TestCounter_CachedAcrossCalls(t *testing.T) {
	factory, reader := newTestFactory(t)

	first, err := factory.Counter(MetricDisposalsDeferred)
	require.NoError(t, err)
	second, err := factory.Counter(MetricDisposalsDeferred)
	require.NoError(t, err)

	require.NoError(t, first.AddOne(context.Background()))
	require.NoError(t, second.AddOne(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "disposals_deferred")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1, "both builders must share one instrument")
	assert.Equal(t, int64(2), dps[0].Value)
}

func TestCounter_ConcurrentCreation(t *testing.T) {
	factory, reader := newTestFactory(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			counter, err := factory.Counter(Metric{Name: "concurrent_counter"})
			assert.NoError(t, err)
			assert.NoError(t, counter.AddOne(context.Background()))
		}()
	}

	wg.Wait()

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "concurrent_counter")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, int64(16), dps[0].Value)
}

// ---------------------------------------------------------------------------
// 3. Gauge recording and verification
// ---------------------------------------------------------------------------

func TestGauge_Set_KeepsLastValue(t *testing.T) {
	factory, reader := newTestFactory(t)

	gauge, err := factory.Gauge(MetricDisposalsActive)
	require.NoError(t, err)

	require.NoError(t, gauge.Set(context.Background(), 10))
	require.NoError(t, gauge.Set(context.Background(), 3))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "disposals_active")
	require.NotNil(t, m)

	dps := gaugeDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, float64(3), dps[0].Value)
}

func TestGauge_NilGauge_ReturnsError(t *testing.T) {
	builder := &GaugeBuilder{gauge: nil}
	err := builder.Set(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNilGauge)
}

// ---------------------------------------------------------------------------
// 4. Histogram recording and verification
// ---------------------------------------------------------------------------

func TestHistogram_Record_RecordsValue(t *testing.T) {
	factory, reader := newTestFactory(t)

	hist, err := factory.Histogram(MetricDisposalDuration)
	require.NoError(t, err)

	require.NoError(t, hist.Record(context.Background(), 0.075))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "disposal_duration_seconds")
	require.NotNil(t, m)

	dps := histDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, uint64(1), dps[0].Count)
	assert.InDelta(t, 0.075, dps[0].Sum, 1e-9)
}

func TestHistogram_BucketBoundariesConfigured(t *testing.T) {
	factory, reader := newTestFactory(t)

	customBuckets := []float64{0.01, 0.25, 0.5, 1}

	hist, err := factory.Histogram(Metric{
		Name:    "custom_histogram",
		Buckets: customBuckets,
	})
	require.NoError(t, err)

	require.NoError(t, hist.Record(context.Background(), 0.3))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "custom_histogram")
	require.NotNil(t, m)

	dps := histDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, customBuckets, dps[0].Bounds, "bucket boundaries must match configured values")
}

func TestHistogram_DefaultBucketsByName(t *testing.T) {
	tests := []struct {
		name     string
		expected []float64
	}{
		{name: "teardown_duration_seconds", expected: DefaultDurationBuckets},
		{name: "admission_latency", expected: DefaultDurationBuckets},
		{name: "disposal_batch_size", expected: DefaultBatchBuckets},
		{name: "unclassified_metric", expected: DefaultDurationBuckets},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, selectDefaultBuckets(tt.name))
		})
	}
}

func TestHistogram_NilHistogram_ReturnsError(t *testing.T) {
	builder := &HistogramBuilder{histogram: nil}
	err := builder.Record(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNilHistogram)
}

func TestHistogramCacheKey(t *testing.T) {
	assert.Equal(t, "d", histogramCacheKey("d", nil))
	assert.Equal(t, "d:0.5,1,2", histogramCacheKey("d", []float64{1, 0.5, 2}),
		"buckets must be sorted into a canonical key")
}

// ---------------------------------------------------------------------------
// 5. Builder patterns: WithLabels, WithAttributes
// ---------------------------------------------------------------------------

func TestCounterBuilder_WithLabels(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{Name: "labeled_counter"})
	require.NoError(t, err)

	labeled := counter.WithLabels(map[string]string{
		"reason": "timeout",
		"unit":   "conn-pool",
	})
	require.NoError(t, labeled.AddOne(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "labeled_counter")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)

	attrs := dps[0].Attributes
	assert.True(t, hasAttribute(attrs, "reason", "timeout"), "must have reason=timeout attribute")
	assert.True(t, hasAttribute(attrs, "unit", "conn-pool"), "must have unit=conn-pool attribute")
}

func TestCounterBuilder_ChainedLabelsAndAttributes(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{Name: "chained_counter"})
	require.NoError(t, err)

	chained := counter.
		WithLabels(map[string]string{"status": "failed"}).
		WithAttributes(attribute.String("phase", "dispose"))
	require.NoError(t, chained.AddOne(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "chained_counter")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.True(t, hasAttribute(dps[0].Attributes, "status", "failed"))
	assert.True(t, hasAttribute(dps[0].Attributes, "phase", "dispose"))
}

func TestCounterBuilder_WithLabelsDoesNotMutateParent(t *testing.T) {
	factory, reader := newTestFactory(t)

	counter, err := factory.Counter(Metric{Name: "immutable_counter"})
	require.NoError(t, err)

	_ = counter.WithLabels(map[string]string{"tainted": "yes"})
	require.NoError(t, counter.AddOne(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "immutable_counter")
	require.NotNil(t, m)

	dps := sumDataPoints(t, m)
	require.Len(t, dps, 1)

	_, hasTainted := dps[0].Attributes.Value(attribute.Key("tainted"))
	assert.False(t, hasTainted, "parent builder must stay attribute-free")
}

func TestHistogramBuilder_WithLabels(t *testing.T) {
	factory, reader := newTestFactory(t)

	hist, err := factory.Histogram(Metric{Name: "labeled_hist", Buckets: []float64{0.1, 1}})
	require.NoError(t, err)

	labeled := hist.WithLabels(map[string]string{"status": "success"})
	require.NoError(t, labeled.Record(context.Background(), 0.55))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, "labeled_hist")
	require.NotNil(t, m)

	dps := histDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.True(t, hasAttribute(dps[0].Attributes, "status", "success"))
}

// ---------------------------------------------------------------------------
// 6. Disposal convenience recorders
// ---------------------------------------------------------------------------

func TestRecordDisposalOutcomes(t *testing.T) {
	factory, reader := newTestFactory(t)
	ctx := context.Background()

	require.NoError(t, factory.RecordDisposalSucceeded(ctx))
	require.NoError(t, factory.RecordDisposalSucceeded(ctx))
	require.NoError(t, factory.RecordDisposalFailed(ctx, "timeout"))
	require.NoError(t, factory.RecordDisposalDeferred(ctx))

	rm := collectMetrics(t, reader)

	succeeded := findMetricByName(rm, MetricDisposalsSucceeded.Name)
	require.NotNil(t, succeeded)
	assert.Equal(t, int64(2), sumDataPoints(t, succeeded)[0].Value)

	failed := findMetricByName(rm, MetricDisposalsFailed.Name)
	require.NotNil(t, failed)
	failedDps := sumDataPoints(t, failed)
	require.Len(t, failedDps, 1)
	assert.Equal(t, int64(1), failedDps[0].Value)
	assert.True(t, hasAttribute(failedDps[0].Attributes, "reason", "timeout"))

	deferred := findMetricByName(rm, MetricDisposalsDeferred.Name)
	require.NotNil(t, deferred)
	assert.Equal(t, int64(1), sumDataPoints(t, deferred)[0].Value)
}

func TestRecordActiveDisposals(t *testing.T) {
	factory, reader := newTestFactory(t)

	require.NoError(t, factory.RecordActiveDisposals(context.Background(), 7))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, MetricDisposalsActive.Name)
	require.NotNil(t, m)
	assert.Equal(t, float64(7), gaugeDataPoints(t, m)[0].Value)
}

func TestRecordDisposalDuration(t *testing.T) {
	factory, reader := newTestFactory(t)

	require.NoError(t, factory.RecordDisposalDuration(context.Background(), 0.125, "success"))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, MetricDisposalDuration.Name)
	require.NotNil(t, m)

	dps := histDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, uint64(1), dps[0].Count)
	assert.InDelta(t, 0.125, dps[0].Sum, 1e-9)
	assert.True(t, hasAttribute(dps[0].Attributes, "status", "success"))
}

func TestRecordCircuitBreakerTrip(t *testing.T) {
	factory, reader := newTestFactory(t)

	require.NoError(t, factory.RecordCircuitBreakerTrip(context.Background()))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, MetricCircuitBreakerTrips.Name)
	require.NotNil(t, m)
	assert.Equal(t, int64(1), sumDataPoints(t, m)[0].Value)
}

func TestRecordBatchSize(t *testing.T) {
	factory, reader := newTestFactory(t)

	require.NoError(t, factory.RecordBatchSize(context.Background(), 12))

	rm := collectMetrics(t, reader)
	m := findMetricByName(rm, MetricBatchSize.Name)
	require.NotNil(t, m)

	dps := histDataPoints(t, m)
	require.Len(t, dps, 1)
	assert.Equal(t, DefaultBatchBuckets, dps[0].Bounds)
	assert.InDelta(t, 12, dps[0].Sum, 1e-9)
}
