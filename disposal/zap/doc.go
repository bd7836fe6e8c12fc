// Package zap provides the zap-backed implementation of the disposal/log
// abstraction.
//
// It bridges structured log.Field values to zap, appends OpenTelemetry trace
// correlation fields when the context carries an active span, tees entries
// into the OTel log bridge, and optionally rotates a JSON log file.
package zap
