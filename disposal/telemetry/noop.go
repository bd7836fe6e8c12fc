package telemetry

import (
	"context"
)

// noopSink discards every signal. It backs disabled telemetry so callers
// never need a nil check before tracking.
type noopSink struct{}

// NewNoopSink returns the no-op sink.
//
//nolint:ireturn
func NewNoopSink() Sink {
	return noopSink{}
}

func (noopSink) TrackEvent(context.Context, string, map[string]string) {}

func (noopSink) TrackMetric(context.Context, string, float64, map[string]string) {}

func (noopSink) TrackException(context.Context, error, map[string]string) {}
