package platform

import "errors"

// Failure taxonomy shared by the engine and the backends. Every failure
// surfaced by the pipeline wraps one of these sentinels, so callers can
// classify with errors.Is while the original cause stays reachable through
// the wrap chain.
var (
	// ErrCompileFailed is returned when the backend reports an unsuccessful
	// compilation. The wrapped message carries the rendered diagnostic text
	// when the engine owns the diagnostic sink.
	ErrCompileFailed = errors.New("compilation failed")

	// ErrUnitNotFound is returned when a requested unit name is absent from
	// both the artifact store and the delegated parent namespace.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrNoEntryPoint is returned when an explicitly configured entry unit
	// exists but lacks a qualifying entry signature.
	ErrNoEntryPoint = errors.New("no entry point")

	// ErrExecutionFailed wraps any error raised by a context setter or entry
	// invocation. Invoked-code errors never propagate with their original
	// shape.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrLinkFailed is returned when an artifact payload cannot be turned
	// into a loaded unit.
	ErrLinkFailed = errors.New("link failed")
)
