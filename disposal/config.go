package disposal

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal/circuitbreaker"
)

var (
	// ErrCoordinatorClosed is returned by DisposeUnit after Close. It is
	// the one failure surfaced as a hard error instead of a Result, since
	// it indicates misuse of the coordinator's lifecycle.
	ErrCoordinatorClosed = errors.New("disposal coordinator is closed")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid disposal config")
)

// FeatureGate reports whether coordinated disposal is enabled. It is
// consulted once per DisposeUnit call, before any coordination runs; when it
// answers false the unit is torn down directly with no admission control,
// no circuit breaker, and no telemetry.
type FeatureGate interface {
	CoordinationEnabled() bool
}

// GateFunc adapts a plain function to the FeatureGate interface.
type GateFunc func() bool

// CoordinationEnabled implements FeatureGate.
func (f GateFunc) CoordinationEnabled() bool { return f() }

// SnapshotFunc supplies a point-in-time resource snapshot used to enrich
// outcome telemetry. Provider failures never affect disposal results.
type SnapshotFunc func() map[string]string

// RuntimeSnapshot is a stock SnapshotFunc reporting Go heap figures, so
// outcome events carry before/after memory numbers.
func RuntimeSnapshot() map[string]string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]string{
		"heap_alloc_bytes": strconv.FormatUint(m.HeapAlloc, 10),
		"heap_objects":     strconv.FormatUint(m.HeapObjects, 10),
		"num_gc":           strconv.FormatUint(uint64(m.NumGC), 10),
	}
}

// Config holds the coordinator's tuning knobs and optional collaborators.
type Config struct {
	// FailureThreshold is the number of consecutive teardown failures
	// that trips the circuit breaker open.
	FailureThreshold uint32

	// CircuitOpenTimeout is how long the circuit stays open before a
	// half-open recovery probe is admitted.
	CircuitOpenTimeout time.Duration

	// DefaultDisposalTimeout bounds a disposal when the caller supplies
	// no per-call timeout. It applies to the semaphore wait and to the
	// guarded execution, each with the full budget.
	DefaultDisposalTimeout time.Duration

	// MaxConcurrentDisposals caps how many teardowns run at once.
	MaxConcurrentDisposals int

	// HealthCheckInterval is the period of the background stats emission.
	// Zero disables the health loop.
	HealthCheckInterval time.Duration

	// ShutdownGracePeriod bounds how long Close waits for in-flight
	// disposals to settle after cancelling them.
	ShutdownGracePeriod time.Duration

	// RecentOutcomes is the capacity of the per-unit outcome cache behind
	// RecentOutcome.
	RecentOutcomes int

	// OnBreakerStateChange, when set, observes circuit transitions. It is
	// invoked synchronously inside the breaker's transition lock and must
	// not call back into the coordinator or the breaker.
	OnBreakerStateChange func(from, to circuitbreaker.State)

	// Gate optionally disables coordination at runtime. Nil means always
	// coordinated.
	Gate FeatureGate

	// Snapshots optionally supplies before/after resource snapshots for
	// outcome telemetry.
	Snapshots SnapshotFunc
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:       5,
		CircuitOpenTimeout:     60 * time.Second,
		DefaultDisposalTimeout: 30 * time.Second,
		MaxConcurrentDisposals: 2 * runtime.GOMAXPROCS(0),
		HealthCheckInterval:    2 * time.Minute,
		ShutdownGracePeriod:    5 * time.Second,
		RecentOutcomes:         128,
	}
}

// Validate checks the configuration for values the coordinator cannot run
// with.
func (c Config) Validate() error {
	if c.FailureThreshold == 0 {
		return fmt.Errorf("%w: failure threshold must be positive", ErrInvalidConfig)
	}

	if c.CircuitOpenTimeout <= 0 {
		return fmt.Errorf("%w: circuit open timeout must be positive", ErrInvalidConfig)
	}

	if c.DefaultDisposalTimeout <= 0 {
		return fmt.Errorf("%w: default disposal timeout must be positive", ErrInvalidConfig)
	}

	if c.MaxConcurrentDisposals <= 0 {
		return fmt.Errorf("%w: max concurrent disposals must be positive", ErrInvalidConfig)
	}

	if c.HealthCheckInterval < 0 {
		return fmt.Errorf("%w: health check interval cannot be negative", ErrInvalidConfig)
	}

	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("%w: shutdown grace period must be positive", ErrInvalidConfig)
	}

	if c.RecentOutcomes <= 0 {
		return fmt.Errorf("%w: recent outcomes capacity must be positive", ErrInvalidConfig)
	}

	return nil
}
