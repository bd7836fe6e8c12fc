package disposal

import (
	"strconv"
	"sync/atomic"

	"github.com/LerianStudio/lib-disposal/disposal/circuitbreaker"
)

// counters holds the coordinator's cumulative outcome totals.
type counters struct {
	successful   atomic.Uint64
	failed       atomic.Uint64
	timedOut     atomic.Uint64
	breakerTrips atomic.Uint64
}

// Stats is a point-in-time view of the coordinator. It is recomputed on
// demand from the live counters and is not a consistent cut across
// concurrent updates.
type Stats struct {
	Successful          uint64
	Failed              uint64
	TimedOut            uint64
	CircuitBreakerTrips uint64
	ActiveDisposals     int
	CircuitBreakerState circuitbreaker.State
	SuccessRate         float64
}

func (c *counters) snapshot(active int, state circuitbreaker.State) Stats {
	s := Stats{
		Successful:          c.successful.Load(),
		Failed:              c.failed.Load(),
		TimedOut:            c.timedOut.Load(),
		CircuitBreakerTrips: c.breakerTrips.Load(),
		ActiveDisposals:     active,
		CircuitBreakerState: state,
	}
	s.SuccessRate = successRate(s.Successful, s.Failed, s.TimedOut)

	return s
}

// successRate is the percentage of completed disposals that succeeded,
// defined as 100 while nothing has completed.
func successRate(successful, failed, timedOut uint64) float64 {
	completed := successful + failed + timedOut
	if completed == 0 {
		return 100.0
	}

	return float64(successful) / float64(completed) * 100.0
}

// Completed returns how many disposals have settled with a terminal
// outcome. Deferred disposals do not count; the unit was never touched.
func (s Stats) Completed() uint64 {
	return s.Successful + s.Failed + s.TimedOut
}

// properties renders the snapshot as telemetry event properties.
func (s Stats) properties() map[string]string {
	return map[string]string{
		"successful":            strconv.FormatUint(s.Successful, 10),
		"failed":                strconv.FormatUint(s.Failed, 10),
		"timed_out":             strconv.FormatUint(s.TimedOut, 10),
		"circuit_breaker_trips": strconv.FormatUint(s.CircuitBreakerTrips, 10),
		"active_disposals":      strconv.Itoa(s.ActiveDisposals),
		"circuit_breaker_state": string(s.CircuitBreakerState),
		"success_rate":          strconv.FormatFloat(s.SuccessRate, 'f', 1, 64),
	}
}
