//go:build unit

package disposal

import (
	"testing"

	"github.com/LerianStudio/lib-disposal/disposal/circuitbreaker"
	"github.com/stretchr/testify/assert"
)

func TestSuccessRateWithNoCompletions(t *testing.T) {
	t.Parallel()

	var c counters

	stats := c.snapshot(0, circuitbreaker.StateClosed)

	assert.InDelta(t, 100.0, stats.SuccessRate, 0.001)
	assert.Zero(t, stats.Completed())
}

func TestCountersSnapshot(t *testing.T) {
	t.Parallel()

	var c counters
	c.successful.Add(3)
	c.failed.Add(1)
	c.timedOut.Add(1)
	c.breakerTrips.Add(2)

	stats := c.snapshot(4, circuitbreaker.StateOpen)

	assert.Equal(t, uint64(3), stats.Successful)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(1), stats.TimedOut)
	assert.Equal(t, uint64(2), stats.CircuitBreakerTrips)
	assert.Equal(t, 4, stats.ActiveDisposals)
	assert.Equal(t, circuitbreaker.StateOpen, stats.CircuitBreakerState)
	assert.Equal(t, uint64(5), stats.Completed())
	assert.InDelta(t, 60.0, stats.SuccessRate, 0.001)
}

func TestStatsProperties(t *testing.T) {
	t.Parallel()

	stats := Stats{
		Successful:          3,
		Failed:              1,
		TimedOut:            1,
		CircuitBreakerTrips: 2,
		ActiveDisposals:     4,
		CircuitBreakerState: circuitbreaker.StateOpen,
		SuccessRate:         60.0,
	}

	props := stats.properties()

	assert.Equal(t, "3", props["successful"])
	assert.Equal(t, "1", props["failed"])
	assert.Equal(t, "1", props["timed_out"])
	assert.Equal(t, "2", props["circuit_breaker_trips"])
	assert.Equal(t, "4", props["active_disposals"])
	assert.Equal(t, "open", props["circuit_breaker_state"])
	assert.Equal(t, "60.0", props["success_rate"])
}
