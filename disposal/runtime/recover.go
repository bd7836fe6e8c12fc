package runtime

import (
	"context"
	"runtime/debug"

	"github.com/LerianStudio/lib-disposal/disposal/log"
)

// PanicPolicy determines what a recovery helper does after logging a panic.
type PanicPolicy int

const (
	// KeepRunning swallows the panic after logging so the goroutine exits
	// normally and the process continues.
	KeepRunning PanicPolicy = iota
	// CrashProcess re-panics after logging. Use it for work where continuing
	// past a panic would be worse than dying.
	CrashProcess
)

// maxStackLen bounds the stack trace attached to panic log entries.
const maxStackLen = 4096

// RecoverAndLog recovers from a panic, logs it with the stack trace, and
// continues execution. Use it in defer statements for background loops and
// listeners that must not take the process down.
//
//	func worker(ctx context.Context) {
//	    defer runtime.RecoverAndLog(ctx, logger, "disposal", "health_loop")
//	    // ...
//	}
func RecoverAndLog(ctx context.Context, logger log.Logger, component, name string) {
	if r := recover(); r != nil {
		logPanic(ctx, logger, r, component, name)
	}
}

// RecoverWithPolicy recovers from a panic and handles it according to the
// given policy: KeepRunning continues, CrashProcess re-panics after logging.
func RecoverWithPolicy(ctx context.Context, logger log.Logger, component, name string, policy PanicPolicy) {
	if r := recover(); r != nil {
		logPanic(ctx, logger, r, component, name)

		if policy == CrashProcess {
			panic(r)
		}
	}
}

// HandlePanicValue processes a panic value that was already recovered by an
// external mechanism. It logs the value with a freshly captured stack trace
// and does not call recover itself. A nil value is ignored.
func HandlePanicValue(ctx context.Context, logger log.Logger, panicValue any, component, name string) {
	if panicValue == nil {
		return
	}

	logPanic(ctx, logger, panicValue, component, name)
}

// SafeGo runs fn in a new goroutine guarded by RecoverWithPolicy. The
// goroutine receives the caller's context unchanged; cancellation is the
// caller's contract with fn.
func SafeGo(ctx context.Context, logger log.Logger, component, name string, policy PanicPolicy, fn func(context.Context)) {
	go func() {
		defer RecoverWithPolicy(ctx, logger, component, name, policy)

		fn(ctx)
	}()
}

func logPanic(ctx context.Context, logger log.Logger, panicValue any, component, name string) {
	if logger == nil {
		return
	}

	stack := string(debug.Stack())
	if len(stack) > maxStackLen {
		stack = stack[:maxStackLen] + "\n...[truncated]"
	}

	logger.Log(ctx, log.LevelError, "panic recovered",
		log.String("component", component),
		log.String("goroutine_name", name),
		log.Any("panic", panicValue),
		log.String("stack_trace", stack),
	)
}
