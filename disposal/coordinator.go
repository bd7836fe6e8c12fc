package disposal

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal/circuitbreaker"
	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/telemetry"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
)

// Pinned result messages. Callers and dashboards match on these.
const (
	msgCircuitOpen      = "circuit breaker is open"
	msgAdmissionTimeout = "semaphore acquisition timeout"
	msgNilUnit          = "unit is nil"
	msgCancelled        = "disposal cancelled"
)

// Coordinator serializes resource teardown behind a circuit breaker and a
// bounded admission semaphore. One instance is built at application startup
// and shared by reference; all methods are safe for concurrent use.
type Coordinator struct {
	cfg    Config
	logger log.Logger
	sink   telemetry.Sink

	breaker  *circuitbreaker.Breaker
	slots    *slotPool
	inFlight *operationSet
	counters counters
	outcomes *lru.Cache[string, Result]
	health   *healthLoop

	closed atomic.Bool
}

// New builds a Coordinator from cfg. A nil logger falls back to log.NewNop()
// and a nil sink to the no-op sink; the sink is always wrapped with panic
// recovery so telemetry bugs cannot fail a disposal.
func New(cfg Config, logger log.Logger, sink telemetry.Sink) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = log.NewNop()
	}

	c := &Coordinator{
		cfg:      cfg,
		logger:   logger,
		sink:     telemetry.NewGuarded(sink, logger),
		slots:    newSlotPool(cfg.MaxConcurrentDisposals),
		inFlight: newOperationSet(),
	}

	outcomes, err := lru.New[string, Result](cfg.RecentOutcomes)
	if err != nil {
		return nil, fmt.Errorf("build outcome cache: %w", err)
	}

	c.outcomes = outcomes

	breaker, err := circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold:  cfg.FailureThreshold,
		OpenTimeout:       cfg.CircuitOpenTimeout,
		MaxHalfOpenProbes: 1,
		OnStateChange:     c.observeBreaker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("build circuit breaker: %w", err)
	}

	c.breaker = breaker

	c.health = newHealthLoop(c, cfg.HealthCheckInterval, logger)
	c.health.start()

	return c, nil
}

// DisposeOption adjusts one DisposeUnit call.
type DisposeOption func(*disposeOptions)

type disposeOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the configured default disposal timeout for one
// call. Non-positive values fall back to the default.
func WithTimeout(timeout time.Duration) DisposeOption {
	return func(o *disposeOptions) {
		o.timeout = timeout
	}
}

// DisposeUnit tears one unit down under coordination and reports the
// outcome as a Result. Teardown errors, timeouts, and circuit rejections
// never propagate as errors; the only error return is ErrCoordinatorClosed,
// which signals misuse of the coordinator's own lifecycle.
func (c *Coordinator) DisposeUnit(ctx context.Context, unit *Unit, opts ...DisposeOption) (Result, error) {
	if c.closed.Load() {
		return Result{}, ErrCoordinatorClosed
	}

	if unit == nil {
		return Failed(msgNilUnit), nil
	}

	options := disposeOptions{timeout: c.cfg.DefaultDisposalTimeout}
	for _, opt := range opts {
		opt(&options)
	}

	if options.timeout <= 0 {
		options.timeout = c.cfg.DefaultDisposalTimeout
	}

	if !c.coordinationEnabled() {
		return c.disposeDirect(ctx, unit, options.timeout), nil
	}

	unitID := unit.identity()

	if c.breaker.State() == circuitbreaker.StateOpen {
		c.counters.breakerTrips.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventDisposalDeferred, map[string]string{"unit_id": unitID})
		c.logger.Log(ctx, log.LevelWarn, "disposal deferred while circuit open", log.String("unit_id", unitID))

		result := Deferred(msgCircuitOpen)
		c.outcomes.Add(unitID, result)

		return result, nil
	}

	admitCtx, cancelAdmit := context.WithTimeout(ctx, options.timeout)
	err := c.slots.acquire(admitCtx)

	cancelAdmit()

	if err != nil {
		c.counters.timedOut.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventAdmissionTimeout, map[string]string{"unit_id": unitID})
		c.logger.Log(ctx, log.LevelWarn, "disposal admission timed out",
			log.String("unit_id", unitID),
			log.Duration("timeout", options.timeout),
		)

		result := Failed(msgAdmissionTimeout)
		c.outcomes.Add(unitID, result)

		return result, nil
	}

	result := c.disposeCoordinated(ctx, unit, unitID, options.timeout)
	c.outcomes.Add(unitID, result)

	return result, nil
}

// disposeCoordinated runs the guarded three-phase teardown while holding an
// admission slot. Whatever happens inside, the in-flight record is removed
// and the slot released before it returns.
func (c *Coordinator) disposeCoordinated(ctx context.Context, unit *Unit, unitID string, timeout time.Duration) Result {
	opCtx, cancel := context.WithTimeout(ctx, timeout)

	op := newOperation(unitID, timeout, cancel)
	c.inFlight.add(op)

	defer func() {
		c.inFlight.remove(op)
		c.slots.release()
		cancel()
		close(op.done)
	}()

	properties := map[string]string{
		"unit_id":      unitID,
		"operation_id": op.id,
	}
	enrich(properties, "before", c.snapshot())

	started := time.Now()

	_, execErr := c.breaker.Execute(func() (any, error) {
		return nil, c.runGuarded(opCtx, unit)
	})

	elapsed := time.Since(started)

	enrich(properties, "after", c.snapshot())

	switch {
	case execErr == nil:
		c.counters.successful.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventDisposalSucceeded, properties)
		c.sink.TrackMetric(ctx, telemetry.MetricDisposalDuration, elapsed.Seconds(), map[string]string{"status": "success"})
		c.logger.Log(ctx, log.LevelDebug, "unit disposed",
			log.String("unit_id", unitID),
			log.Duration("elapsed", elapsed),
		)

		return Success()

	case errors.Is(execErr, circuitbreaker.ErrOpen):
		// The circuit flipped between the entry check and execution, or a
		// half-open probe was already in flight.
		c.counters.breakerTrips.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventDisposalDeferred, properties)
		c.logger.Log(ctx, log.LevelWarn, "disposal deferred while circuit open", log.String("unit_id", unitID))

		return Deferred(msgCircuitOpen)

	case errors.Is(execErr, context.DeadlineExceeded):
		c.counters.timedOut.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventDisposalTimedOut, properties)
		c.sink.TrackMetric(ctx, telemetry.MetricDisposalDuration, elapsed.Seconds(), map[string]string{"status": "timeout"})
		c.logger.Log(ctx, log.LevelWarn, "disposal timed out",
			log.String("unit_id", unitID),
			log.Duration("timeout", timeout),
		)

		return Failed(fmt.Sprintf("disposal timeout after %gs", timeout.Seconds()))

	case errors.Is(execErr, context.Canceled):
		c.counters.failed.Add(1)
		c.sink.TrackEvent(ctx, telemetry.EventDisposalCancelled, properties)
		c.logger.Log(ctx, log.LevelWarn, "disposal cancelled", log.String("unit_id", unitID))

		return Failed(msgCancelled)

	default:
		c.counters.failed.Add(1)
		c.sink.TrackException(ctx, execErr, properties)
		c.sink.TrackMetric(ctx, telemetry.MetricDisposalDuration, elapsed.Seconds(), map[string]string{"status": "failed"})
		c.logger.Log(ctx, log.LevelError, "disposal failed",
			log.String("unit_id", unitID),
			log.Err(execErr),
		)

		return Failed("disposal failed: " + execErr.Error())
	}
}

// runGuarded drives the unit's phases on their own goroutine and races them
// against opCtx. A hanging phase is abandoned: it keeps running until it
// honors its context, but the disposal settles immediately.
func (c *Coordinator) runGuarded(ctx context.Context, unit *Unit) error {
	phaseErr := make(chan error, 1)

	go func() {
		phaseErr <- c.runPhases(ctx, unit, true)
	}()

	select {
	case err := <-phaseErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runPhases invokes prepare, dispose, and cleanup in order. Prepare and
// cleanup are best effort: their failures are logged but do not fail the
// disposal. The dispose error is the one the circuit breaker counts. Phase
// failure events are emitted only for coordinated runs; direct mode stays
// silent.
func (c *Coordinator) runPhases(ctx context.Context, unit *Unit, track bool) error {
	unitID := unit.identity()

	if err := runPhase(ctx, unit.Prepare); err != nil {
		c.logger.Log(ctx, log.LevelWarn, "prepare phase failed", log.String("unit_id", unitID), log.Err(err))

		if track {
			c.sink.TrackEvent(ctx, telemetry.EventPrepareFailed, map[string]string{"unit_id": unitID})
		}
	}

	if err := runPhase(ctx, unit.Dispose); err != nil {
		return err
	}

	if err := runPhase(ctx, unit.Cleanup); err != nil {
		c.logger.Log(ctx, log.LevelWarn, "cleanup phase failed", log.String("unit_id", unitID), log.Err(err))

		if track {
			c.sink.TrackEvent(ctx, telemetry.EventCleanupFailed, map[string]string{"unit_id": unitID})
		}
	}

	return nil
}

// runPhase invokes one optional phase hook, converting a panic into an
// error so buggy teardown code degrades instead of crashing the process.
func runPhase(ctx context.Context, phase func(context.Context) error) (err error) {
	if phase == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in teardown: %v", r)
		}
	}()

	return phase(ctx)
}

// disposeDirect tears the unit down with no admission control, no circuit
// breaker, no telemetry, and no bookkeeping. It is the migration/rollback
// path behind the feature gate, not for normal operation.
func (c *Coordinator) disposeDirect(ctx context.Context, unit *Unit, timeout time.Duration) Result {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.runPhases(opCtx, unit, false); err != nil {
		c.logger.Log(ctx, log.LevelError, "direct disposal failed",
			log.String("unit_id", unit.identity()),
			log.Err(err),
		)

		return Failed("disposal failed: " + err.Error())
	}

	return Success()
}

func (c *Coordinator) coordinationEnabled() bool {
	if c.cfg.Gate == nil {
		return true
	}

	return c.cfg.Gate.CoordinationEnabled()
}

// observeBreaker runs inside the breaker's transition lock. It must not
// call back into the breaker or block.
func (c *Coordinator) observeBreaker(from, to circuitbreaker.State) {
	if to == circuitbreaker.StateOpen {
		c.sink.TrackEvent(context.Background(), telemetry.EventBreakerTripped, map[string]string{
			"from": string(from),
			"to":   string(to),
		})
		c.health.poke()
	}

	if c.cfg.OnBreakerStateChange != nil {
		c.cfg.OnBreakerStateChange(from, to)
	}
}

// snapshot calls the optional provider, shielding disposal outcomes from
// provider bugs. It returns nil when no provider is configured.
func (c *Coordinator) snapshot() map[string]string {
	if c.cfg.Snapshots == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Log(context.Background(), log.LevelWarn, "snapshot provider panicked", log.Any("panic", r))
		}
	}()

	return c.cfg.Snapshots()
}

// enrich copies snapshot keys into properties under a phase prefix.
func enrich(properties map[string]string, prefix string, snapshot map[string]string) {
	for k, v := range snapshot {
		properties[prefix+"_"+k] = v
	}
}

// Stats returns a point-in-time view of the coordinator's counters, the
// in-flight count, and the circuit state.
func (c *Coordinator) Stats() Stats {
	return c.counters.snapshot(c.inFlight.size(), c.breaker.State())
}

// CancelAllDisposals requests cooperative cancellation of every in-flight
// disposal and waits up to timeout, in aggregate, for them to settle. It is
// advisory: teardown code that ignores its context keeps running, but each
// operation's bookkeeping still settles the moment its guard observes the
// cancellation.
func (c *Coordinator) CancelAllDisposals(ctx context.Context, timeout time.Duration) error {
	ops := c.inFlight.snapshot()
	if len(ops) == 0 {
		return nil
	}

	c.logger.Log(ctx, log.LevelWarn, "cancelling in-flight disposals", log.Int("count", len(ops)))

	for _, op := range ops {
		op.cancel()
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for _, op := range ops {
		select {
		case <-op.done:
		case <-deadline.C:
			return fmt.Errorf("cancel disposals: %d still in flight after %s", c.inFlight.size(), timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Close tears the coordinator down: it cancels in-flight disposals with a
// bounded grace period, stops the health loop, closes the circuit breaker,
// and emits a final stats snapshot. Close is idempotent; only the first
// call does the work. Read accessors keep answering afterwards.
func (c *Coordinator) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	var errs error

	if err := c.CancelAllDisposals(ctx, c.cfg.ShutdownGracePeriod); err != nil {
		errs = multierr.Append(errs, err)
	}

	c.health.stop()

	if err := c.breaker.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}

	final := c.Stats()
	c.sink.TrackEvent(ctx, telemetry.EventCoordinatorClosed, final.properties())
	c.logger.Log(ctx, log.LevelInfo, "disposal coordinator closed",
		log.Uint64("successful", final.Successful),
		log.Uint64("failed", final.Failed),
		log.Uint64("timed_out", final.TimedOut),
		log.Float64("success_rate", final.SuccessRate),
	)

	return errs
}
