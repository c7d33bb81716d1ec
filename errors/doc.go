// Package errors provides structured error types for the gc-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: frame depth, capacity information, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseRoot, errors.KindFrameFull).
//		Depth(3).
//		Capacity(16, 16).
//		Detail("cannot root value in full frame").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FrameFull(errors.PhaseRoot, 16)
//	err := errors.UseAfterPop(errors.PhaseCall, 3)
//
// All errors implement the standard error interface and support errors.Is/As.
//
// The taxonomy distinguishes recoverable capacity errors (KindFrameFull,
// KindStackExhausted) from protocol violations (KindOutOfOrder,
// KindUseAfterPop, KindUnreserved) which are programming errors: the core
// panics on those rather than returning them, so a returned *Error is
// always something the caller can act on.
package errors
