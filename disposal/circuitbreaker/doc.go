// Package circuitbreaker provides the three-state failure isolator that
// guards the disposal execution path.
//
// Use New to build a Breaker, then run teardown work through Breaker.Execute
// (or the typed Do helper) so consecutive failures are tracked in one place.
// Once the failure threshold is crossed the circuit opens and calls fail
// fast with ErrOpen until the open timeout elapses and a half-open probe
// succeeds.
package circuitbreaker
