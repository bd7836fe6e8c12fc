//go:build unit

package disposal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckPublishesStats(t *testing.T) {
	t.Parallel()

	sink := newCapturingSink()
	c := newTestCoordinator(t, quickConfig(), nil, sink)

	_, err := c.DisposeUnit(context.Background(), succeedingUnit("ok"))
	require.NoError(t, err)

	c.health.check(context.Background())

	events := sink.eventsNamed(telemetry.EventCoordinatorHealth)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].properties["successful"])
	assert.Equal(t, "closed", events[0].properties["circuit_breaker_state"])

	rates := sink.metricsNamed(telemetry.MetricSuccessRate)
	require.Len(t, rates, 1)
	assert.InDelta(t, 100.0, rates[0].value, 0.001)

	actives := sink.metricsNamed(telemetry.MetricActiveDisposals)
	require.Len(t, actives, 1)
	assert.InDelta(t, 0.0, actives[0].value, 0.001)
}

func TestHealthCheckWarnsOnDegradedSuccessRate(t *testing.T) {
	t.Parallel()

	logger := newRecordingLogger()
	c := newTestCoordinator(t, quickConfig(), logger, nil)

	c.counters.successful.Add(2)
	c.counters.failed.Add(8)

	c.health.check(context.Background())

	assert.True(t, logger.has(log.LevelWarn, "disposal success rate degraded"))
}

func TestHealthCheckStaysQuietOnSmallSamples(t *testing.T) {
	t.Parallel()

	logger := newRecordingLogger()
	c := newTestCoordinator(t, quickConfig(), logger, nil)

	c.counters.failed.Add(9)

	c.health.check(context.Background())

	assert.False(t, logger.has(log.LevelWarn, "disposal success rate degraded"))
}

func TestHealthCheckWarnsNearSaturation(t *testing.T) {
	t.Parallel()

	logger := newRecordingLogger()
	c := newTestCoordinator(t, quickConfig(), logger, nil)

	ops := make([]*operation, 0, 4)

	for i := 0; i < 4; i++ {
		op := newOperation(fmt.Sprintf("unit-%d", i), time.Second, func() {})
		c.inFlight.add(op)
		ops = append(ops, op)
	}

	c.health.check(context.Background())

	assert.True(t, logger.has(log.LevelWarn, "disposal concurrency near saturation"))

	for _, op := range ops {
		c.inFlight.remove(op)
		close(op.done)
	}
}

func TestHealthCheckQuietWhenHealthy(t *testing.T) {
	t.Parallel()

	logger := newRecordingLogger()
	c := newTestCoordinator(t, quickConfig(), logger, nil)

	c.counters.successful.Add(20)

	c.health.check(context.Background())

	assert.False(t, logger.has(log.LevelWarn, "disposal success rate degraded"))
	assert.False(t, logger.has(log.LevelWarn, "disposal concurrency near saturation"))
}

func TestHealthLoopPublishesOnInterval(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.HealthCheckInterval = 10 * time.Millisecond

	sink := newCapturingSink()
	c := newTestCoordinator(t, cfg, nil, sink)

	require.Eventually(t, func() bool {
		return sink.eventCount(telemetry.EventCoordinatorHealth) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close(context.Background()))

	// The loop is dead after Close; no further checks land.
	settled := sink.eventCount(telemetry.EventCoordinatorHealth)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, sink.eventCount(telemetry.EventCoordinatorHealth))
}

func TestPokeTriggersImmediateCheck(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.HealthCheckInterval = time.Hour

	sink := newCapturingSink()
	c := newTestCoordinator(t, cfg, nil, sink)

	c.health.poke()

	require.Eventually(t, func() bool {
		return sink.eventCount(telemetry.EventCoordinatorHealth) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBreakerTripPokesHealthCheck(t *testing.T) {
	t.Parallel()

	cfg := quickConfig()
	cfg.FailureThreshold = 1
	cfg.CircuitOpenTimeout = time.Minute
	cfg.HealthCheckInterval = time.Hour

	sink := newCapturingSink()
	c := newTestCoordinator(t, cfg, nil, sink)

	_, err := c.DisposeUnit(context.Background(), failingUnit("bad"))
	require.NoError(t, err)

	assert.Equal(t, 1, sink.eventCount(telemetry.EventBreakerTripped))

	require.Eventually(t, func() bool {
		return sink.eventCount(telemetry.EventCoordinatorHealth) >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHealthLoopDisabledWithZeroInterval(t *testing.T) {
	t.Parallel()

	sink := newCapturingSink()
	c := newTestCoordinator(t, quickConfig(), nil, sink)

	c.health.poke()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, sink.eventCount(telemetry.EventCoordinatorHealth))

	require.NoError(t, c.Close(context.Background()))
}
