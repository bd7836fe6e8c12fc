package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/runtime"
	"github.com/sony/gobreaker"
)

const breakerName = "disposal"

// Breaker isolates a failing teardown path behind a three-state circuit.
//
// While closed it executes calls and counts consecutive failures. Once the
// failure threshold is crossed it opens and rejects calls with ErrOpen until
// OpenTimeout elapses, after which a bounded number of half-open probes
// decide between reopening and closing. All state transitions are serialized
// by a single internal lock, so concurrent callers never observe a torn
// transition.
type Breaker struct {
	cb       *gobreaker.CircuitBreaker
	logger   log.Logger
	observer func(from State, to State)

	disposed    atomic.Bool
	lastFailure atomic.Int64 // unix nanos of the most recent failure, 0 when cleared
	openedAt    atomic.Int64 // unix nanos of the most recent transition to open, 0 when closed
}

// New builds a Breaker from cfg. A nil logger falls back to log.NewNop().
func New(cfg Config, logger log.Logger) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewNop()
	}

	b := &Breaker{
		logger:   logger,
		observer: cfg.OnStateChange,
	}

	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.MaxHalfOpenProbes,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			b.handleStateChange(convertState(from), convertState(to))
		},
	})

	return b, nil
}

// Execute runs fn through the circuit. While the circuit is open, or when a
// half-open probe is already in flight, the call fails with ErrOpen and fn
// is not invoked. Errors returned by fn pass through unchanged; a panic
// inside fn is counted as a failure and re-propagated.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	if b.disposed.Load() {
		return nil, ErrDisposed
	}

	completed := false

	defer func() {
		if !completed {
			b.lastFailure.Store(time.Now().UnixNano())
		}
	}()

	result, err := b.cb.Execute(fn)
	completed = true

	switch {
	case err == nil:
		b.lastFailure.Store(0)
	case errors.Is(err, gobreaker.ErrOpenState):
		return nil, ErrOpen
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	default:
		b.lastFailure.Store(time.Now().UnixNano())
	}

	return result, err
}

// Do runs fn through b and returns its result with the concrete type
// preserved. It exists because Go methods cannot carry type parameters.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	result, err := b.Execute(func() (any, error) {
		return fn()
	})

	value, _ := result.(T)

	return value, err
}

// State reports the current circuit state. Reading the state moves an
// expired open circuit to half-open, exactly as the next Execute would
// observe it.
func (b *Breaker) State() State {
	return convertState(b.cb.State())
}

// FailureCount returns the consecutive-failure count. It resets to zero on
// success and on every state transition.
func (b *Breaker) FailureCount() uint32 {
	return b.cb.Counts().ConsecutiveFailures
}

// Counts returns a snapshot of the request statistics.
func (b *Breaker) Counts() Counts {
	counts := b.cb.Counts()

	return Counts{
		Requests:             counts.Requests,
		TotalSuccesses:       counts.TotalSuccesses,
		TotalFailures:        counts.TotalFailures,
		ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
		ConsecutiveFailures:  counts.ConsecutiveFailures,
	}
}

// LastFailureTime returns when the wrapped operation last failed, or the
// zero time when no failure has been recorded since the last success.
func (b *Breaker) LastFailureTime() time.Time {
	nanos := b.lastFailure.Load()
	if nanos == 0 {
		return time.Time{}
	}

	return time.Unix(0, nanos)
}

// OpenedAt returns when the circuit last opened, or the zero time while the
// circuit is closed.
func (b *Breaker) OpenedAt() time.Time {
	nanos := b.openedAt.Load()
	if nanos == 0 {
		return time.Time{}
	}

	return time.Unix(0, nanos)
}

// Close marks the breaker disposed: subsequent Execute calls fail with
// ErrDisposed while the read accessors keep answering. An in-flight Execute
// is not interrupted. Close is idempotent.
func (b *Breaker) Close() error {
	if !b.disposed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Log(context.Background(), log.LevelDebug, "circuit breaker disposed")

	return nil
}

// handleStateChange runs inside gobreaker's transition lock. It must only
// touch the breaker's atomics, the logger, and the observer.
func (b *Breaker) handleStateChange(from State, to State) {
	switch to {
	case StateOpen:
		b.openedAt.Store(time.Now().UnixNano())
	case StateClosed:
		b.openedAt.Store(0)
		b.lastFailure.Store(0)
	}

	ctx := context.Background()

	b.logger.Log(ctx, log.LevelWarn, "circuit breaker state changed",
		log.String("from", string(from)),
		log.String("to", string(to)),
	)

	switch to {
	case StateOpen:
		b.logger.Log(ctx, log.LevelError, "circuit breaker opened, teardown calls will fast-fail")
	case StateHalfOpen:
		b.logger.Log(ctx, log.LevelInfo, "circuit breaker half-open, probing recovery")
	case StateClosed:
		b.logger.Log(ctx, log.LevelInfo, "circuit breaker closed, teardown path healthy")
	}

	b.notifyObserver(from, to)
}

// notifyObserver calls the configured observer synchronously, shielding the
// state machine from observer panics.
func (b *Breaker) notifyObserver(from State, to State) {
	if b.observer == nil {
		return
	}

	defer func() {
		runtime.HandlePanicValue(context.Background(), b.logger, recover(), "circuitbreaker", "OnStateChange")
	}()

	b.observer(from, to)
}
