package telemetry

// Canonical signal names emitted by the disposal coordinator. Sinks may
// route them onto purpose-built instruments; unknown names must still be
// recorded.
const (
	EventDisposalSucceeded = "disposal_succeeded"
	EventDisposalDeferred  = "disposal_deferred"
	EventDisposalTimedOut  = "disposal_timed_out"
	EventDisposalCancelled = "disposal_cancelled"
	EventAdmissionTimeout  = "disposal_admission_timeout"
	EventPrepareFailed     = "disposal_prepare_failed"
	EventCleanupFailed     = "disposal_cleanup_failed"
	EventBreakerTripped    = "circuit_breaker_tripped"
	EventCoordinatorHealth = "coordinator_health"
	EventCoordinatorClosed = "coordinator_closed"

	MetricDisposalDuration = "disposal_duration_seconds"
	MetricSuccessRate      = "disposal_success_rate"
	MetricActiveDisposals  = "active_disposals"
	MetricBatchSize        = "disposal_batch_size"
)
