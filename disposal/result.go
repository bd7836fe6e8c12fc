package disposal

// Status classifies the outcome of one disposal.
type Status string

const (
	// StatusSuccess means all phases completed.
	StatusSuccess Status = "success"

	// StatusFailed means the teardown failed, timed out, or was invalid.
	StatusFailed Status = "failed"

	// StatusDeferred means the circuit breaker rejected the disposal
	// before the unit was touched. The caller may retry later.
	StatusDeferred Status = "deferred"
)

// Result is the immutable outcome of one DisposeUnit call.
type Result struct {
	Status  Status
	Message string
}

// Success returns the successful outcome.
func Success() Result {
	return Result{Status: StatusSuccess}
}

// Failed returns a failed outcome carrying a descriptive message.
func Failed(message string) Result {
	return Result{Status: StatusFailed, Message: message}
}

// Deferred returns a policy-rejection outcome carrying the reason.
func Deferred(message string) Result {
	return Result{Status: StatusDeferred, Message: message}
}

// Succeeded reports whether the disposal completed.
func (r Result) Succeeded() bool {
	return r.Status == StatusSuccess
}
