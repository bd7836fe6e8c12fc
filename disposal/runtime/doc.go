// Package runtime provides panic-recovery helpers for goroutines spawned by
// lib-disposal.
//
// Use SafeGo to launch background work that must never crash the host
// process, and HandlePanicValue to route panic values recovered by an
// external mechanism through the same logging pipeline.
package runtime
