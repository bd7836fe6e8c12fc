package circuitbreaker

import (
	"errors"

	"github.com/sony/gobreaker"
)

var (
	// ErrOpen is returned by Execute when the circuit rejects a call
	// without invoking the wrapped operation.
	ErrOpen = errors.New("circuit breaker is open")

	// ErrDisposed is returned by Execute after Close has been called.
	ErrDisposed = errors.New("circuit breaker is disposed")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("invalid circuit breaker config")
)

// State represents the breaker state visible to callers.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts is a snapshot of the breaker's request statistics for the current
// generation. Counts reset on every state transition.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// convertState maps gobreaker's state enum onto State.
func convertState(state gobreaker.State) State {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateUnknown
	}
}
