// Package telemetry defines the event sink the disposal coordinator reports
// through, plus factory-built implementations: OpenTelemetry-backed,
// Prometheus-backed, and no-op.
//
// Sink implementations are observers. They must never influence disposal
// control flow; wrap third-party sinks with NewGuarded so a panicking
// observer cannot take a teardown down with it.
package telemetry
