package disposal

import (
	"context"
	"sync"

	"github.com/LerianStudio/lib-disposal/disposal/runtime"
	"github.com/LerianStudio/lib-disposal/disposal/telemetry"
)

// DisposeAll tears down a batch of units concurrently, bounded by the
// coordinator's admission semaphore, and returns one Result per unit in
// the same order. Nil units and coordinator closure surface as Failed
// results rather than aborting the batch.
func (c *Coordinator) DisposeAll(ctx context.Context, units []*Unit, opts ...DisposeOption) []Result {
	results := make([]Result, len(units))
	if len(units) == 0 {
		return results
	}

	c.sink.TrackMetric(ctx, telemetry.MetricBatchSize, float64(len(units)), nil)

	var wg sync.WaitGroup

	for i, unit := range units {
		i, unit := i, unit

		wg.Add(1)

		runtime.SafeGo(ctx, c.logger, "disposal", "batch", runtime.KeepRunning, func(ctx context.Context) {
			defer wg.Done()

			result, err := c.DisposeUnit(ctx, unit, opts...)
			if err != nil {
				result = Failed(err.Error())
			}

			results[i] = result
		})
	}

	wg.Wait()

	return results
}
