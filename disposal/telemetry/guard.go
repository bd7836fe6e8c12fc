package telemetry

import (
	"context"

	"github.com/LerianStudio/lib-disposal/disposal/log"
	"github.com/LerianStudio/lib-disposal/disposal/runtime"
)

// guardedSink isolates the coordinator from sink bugs. A panic inside the
// wrapped sink is logged and swallowed; the disposal that triggered the
// signal proceeds untouched.
type guardedSink struct {
	inner  Sink
	logger log.Logger
}

// NewGuarded wraps sink with panic recovery. A nil sink yields the no-op
// sink so callers can wrap unconditionally.
//
//nolint:ireturn
func NewGuarded(sink Sink, logger log.Logger) Sink {
	if sink == nil {
		return NewNoopSink()
	}

	if logger == nil {
		logger = log.NewNop()
	}

	return &guardedSink{inner: sink, logger: logger}
}

func (g *guardedSink) TrackEvent(ctx context.Context, name string, properties map[string]string) {
	defer g.recover(ctx, "TrackEvent")

	g.inner.TrackEvent(ctx, name, properties)
}

func (g *guardedSink) TrackMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	defer g.recover(ctx, "TrackMetric")

	g.inner.TrackMetric(ctx, name, value, labels)
}

func (g *guardedSink) TrackException(ctx context.Context, err error, properties map[string]string) {
	defer g.recover(ctx, "TrackException")

	g.inner.TrackException(ctx, err, properties)
}

func (g *guardedSink) recover(ctx context.Context, method string) {
	runtime.HandlePanicValue(ctx, g.logger, recover(), "telemetry", method)
}
