package circuitbreaker

import (
	"fmt"
	"time"
)

// Config holds circuit breaker tuning knobs.
type Config struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the circuit from closed to open.
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open before the next call
	// is admitted as a half-open probe.
	OpenTimeout time.Duration

	// MaxHalfOpenProbes caps the calls admitted while half-open. Zero
	// means a single probe.
	MaxHalfOpenProbes uint32

	// OnStateChange, when set, is invoked synchronously on every state
	// transition. It runs inside the breaker's transition lock and must
	// not call back into the Breaker.
	OnStateChange func(from State, to State)
}

// DefaultConfig provides balanced settings for most teardown workloads.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		OpenTimeout:       60 * time.Second,
		MaxHalfOpenProbes: 1,
	}
}

// AggressiveConfig trips quickly, for teardown paths where repeated
// failures are expensive to keep retrying.
func AggressiveConfig() Config {
	return Config{
		FailureThreshold:  3,
		OpenTimeout:       30 * time.Second,
		MaxHalfOpenProbes: 1,
	}
}

// ConservativeConfig tolerates more failures before tripping.
func ConservativeConfig() Config {
	return Config{
		FailureThreshold:  10,
		OpenTimeout:       5 * time.Minute,
		MaxHalfOpenProbes: 1,
	}
}

// Validate checks the configuration for values the breaker cannot run with.
func (c Config) Validate() error {
	if c.FailureThreshold == 0 {
		return fmt.Errorf("%w: failure threshold must be positive", ErrInvalidConfig)
	}

	if c.OpenTimeout <= 0 {
		return fmt.Errorf("%w: open timeout must be positive", ErrInvalidConfig)
	}

	return nil
}
