package native

import "context"

// RootSource enumerates live roots for a collection pass. Chain implements
// it; backends walk every bound source before sweeping.
type RootSource interface {
	VisitRoots(fn func(Ptr) bool)
}

// Collector is the guest runtime's garbage collection surface.
type Collector interface {
	// SetGCEnabled turns collection on or off and returns the previous
	// state. Disabling is advisory: allocation can still trigger an abort
	// if the guest heap is truly exhausted.
	SetGCEnabled(enabled bool) bool

	// Collect triggers a collection pass. A full pass scans the entire
	// heap, otherwise the guest may run an incremental pass.
	Collect(full bool)

	// Safepoint gives the collector an opportunity to pause the owning
	// thread if a collection is pending.
	Safepoint()

	// RegisterFinalizer arranges for fn to run when p is collected.
	RegisterFinalizer(p Ptr, fn func())
}

// Result is the outcome of a guest call. Exactly one of Value and
// Exception is meaningful: a non-null Exception is the thrown guest value,
// and like any other guest pointer it must be rooted before the caller
// suspends or returns.
type Result struct {
	Value     Ptr
	Exception Ptr
}

// Threw reports whether the call raised a guest exception.
func (r Result) Threw() bool {
	return !r.Exception.IsNull()
}

// Runtime is a guest runtime backend. Implementations must tolerate a
// collection pass at any Call boundary; everything the host still needs
// must be reachable from a bound RootSource at that point.
//
// Init and Shutdown are one-shot: a Runtime is initialized exactly once
// per process and torn down exactly once at exit.
type Runtime interface {
	Collector

	// Init starts the guest runtime. Must be called before any other
	// method, from the thread that will own all guest calls.
	Init(ctx context.Context) error

	// Shutdown tears the guest runtime down. No methods may be called
	// afterwards.
	Shutdown(ctx context.Context) error

	// BindRoots registers src with the collector's root scan.
	BindRoots(src RootSource)

	// UnbindRoots removes src from the collector's root scan. All
	// pointers only reachable through src become collectable.
	UnbindRoots(src RootSource)

	// Call invokes an exported guest function. The returned pointers are
	// unrooted; the caller roots them through its target before doing
	// anything that may trigger a collection.
	Call(ctx context.Context, name string, args ...Ptr) (Result, error)
}
