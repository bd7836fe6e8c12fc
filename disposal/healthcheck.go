package disposal

import (
	"context"
	"sync"
	"time"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/runtime"
	"github.com/LerianStudio/lib-disposal/disposal/telemetry"
)

const (
	// minSampleForRateWarning is how many completed disposals are needed
	// before the success rate is considered meaningful.
	minSampleForRateWarning = 10

	// warnSuccessRate is the success-rate percentage below which the
	// health check raises a warning.
	warnSuccessRate = 80.0

	// saturationRatio is the in-flight fraction of the concurrency limit
	// above which the health check warns about saturation.
	saturationRatio = 0.8
)

// healthLoop periodically publishes the coordinator's stats and warns when
// they look unhealthy. It only reads state; it never intervenes.
type healthLoop struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      log.Logger

	checkNow chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func newHealthLoop(c *Coordinator, interval time.Duration, logger log.Logger) *healthLoop {
	return &healthLoop{
		coordinator: c,
		interval:    interval,
		logger:      logger,
		checkNow:    make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
	}
}

// start launches the loop. A non-positive interval disables it entirely.
func (h *healthLoop) start() {
	if h.interval <= 0 {
		return
	}

	h.wg.Add(1)
	runtime.SafeGo(context.Background(), h.logger, "disposal", "healthcheck", runtime.KeepRunning, func(ctx context.Context) {
		defer h.wg.Done()
		h.run(ctx)
	})
}

func (h *healthLoop) run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.check(ctx)
		case <-h.checkNow:
			h.check(ctx)
		case <-h.stopCh:
			return
		}
	}
}

// poke asks for one off-schedule check without blocking the caller. Extra
// pokes while one is pending are dropped.
func (h *healthLoop) poke() {
	select {
	case h.checkNow <- struct{}{}:
	default:
	}
}

// stop terminates the loop and waits for it to exit.
func (h *healthLoop) stop() {
	if h.interval <= 0 {
		return
	}

	close(h.stopCh)
	h.wg.Wait()
}

// check publishes one stats snapshot and logs warnings for a degraded
// success rate or a nearly saturated semaphore.
func (h *healthLoop) check(ctx context.Context) {
	stats := h.coordinator.Stats()

	h.coordinator.sink.TrackEvent(ctx, telemetry.EventCoordinatorHealth, stats.properties())
	h.coordinator.sink.TrackMetric(ctx, telemetry.MetricSuccessRate, stats.SuccessRate, nil)
	h.coordinator.sink.TrackMetric(ctx, telemetry.MetricActiveDisposals, float64(stats.ActiveDisposals), nil)

	if stats.Completed() >= minSampleForRateWarning && stats.SuccessRate < warnSuccessRate {
		h.logger.Log(ctx, log.LevelWarn, "disposal success rate degraded",
			log.Float64("success_rate", stats.SuccessRate),
			log.Uint64("completed", stats.Completed()),
			log.String("breaker_state", string(stats.CircuitBreakerState)),
		)
	}

	limit := h.coordinator.slots.capacity()
	if float64(stats.ActiveDisposals) > saturationRatio*float64(limit) {
		h.logger.Log(ctx, log.LevelWarn, "disposal concurrency near saturation",
			log.Int("active", stats.ActiveDisposals),
			log.Int("limit", limit),
		)
	}
}
