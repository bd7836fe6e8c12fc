// Package log defines the structured logging interface and typed logging
// fields used across lib-disposal.
//
// Adapters (such as the zap package) implement Logger so the coordinator and
// its subpackages stay backend-agnostic.
package log
