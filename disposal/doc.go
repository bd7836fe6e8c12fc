// Package disposal coordinates the teardown of live resource handles under
// concurrent request pressure.
//
// A Coordinator routes every disposal through a circuit breaker, bounds how
// many teardowns run at once with a counting semaphore, tracks in-flight
// operations for emergency cancellation, and emits telemetry about each
// outcome. Teardown code that throws, hangs, or is invoked redundantly
// degrades the coordinator's statistics instead of the host process.
//
// Construct one Coordinator at application startup and share it:
//
//	coordinator, err := disposal.New(disposal.DefaultConfig(), logger, sink)
//	if err != nil {
//		return err
//	}
//	defer coordinator.Close(ctx)
//
//	result, err := coordinator.DisposeUnit(ctx, &disposal.Unit{
//		ID:      "session-42",
//		Dispose: session.release,
//	})
package disposal
