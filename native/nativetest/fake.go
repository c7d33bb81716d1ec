// Package nativetest provides a fake guest runtime for tests.
//
// The fake owns a mark-and-sweep heap of sentinel objects. A collection
// pass marks everything reachable from the bound root sources and frees
// the rest, which makes rooting bugs observable: a pointer that should
// have been rooted comes back as freed after the next Collect.
package nativetest

import (
	"context"
	"sync"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Func is a registered guest function. It returns a result pointer and an
// exception pointer; a non-null exception means the call threw.
type Func func(args []native.Ptr) (native.Ptr, native.Ptr)

type object struct {
	value      any
	finalizers []func()
	freed      bool
}

// Fake is an in-memory native.Runtime with a precise collector.
type Fake struct {
	mu          sync.Mutex
	heap        map[native.Ptr]*object
	sources     []native.RootSource
	funcs       map[string]Func
	nextPtr     native.Ptr
	gcEnabled   bool
	collections int
	initialized bool
	shutdown    bool

	// CollectOnCall makes every Call trigger a full collection first,
	// simulating the collector running at an arbitrary guest call.
	CollectOnCall bool
}

// New returns an initialized-on-demand fake runtime.
func New() *Fake {
	return &Fake{
		heap:      make(map[native.Ptr]*object),
		funcs:     make(map[string]Func),
		nextPtr:   0x1000,
		gcEnabled: true,
	}
}

// Init implements native.Runtime.
func (f *Fake) Init(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return errors.AlreadyInitialized("fake runtime")
	}
	f.initialized = true
	return nil
}

// Shutdown implements native.Runtime.
func (f *Fake) Shutdown(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized || f.shutdown {
		return errors.NotInitialized(errors.PhaseShutdown, "fake runtime")
	}
	f.shutdown = true
	return nil
}

// BindRoots implements native.Runtime.
func (f *Fake) BindRoots(src native.RootSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources = append(f.sources, src)
}

// UnbindRoots implements native.Runtime.
func (f *Fake) UnbindRoots(src native.RootSource) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.sources {
		if s == src {
			f.sources = append(f.sources[:i], f.sources[i+1:]...)
			return
		}
	}
}

// Register makes fn callable by name through Call.
func (f *Fake) Register(name string, fn Func) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[name] = fn
}

// Call implements native.Runtime.
func (f *Fake) Call(_ context.Context, name string, args ...native.Ptr) (native.Result, error) {
	f.mu.Lock()
	fn, ok := f.funcs[name]
	collectFirst := f.CollectOnCall
	f.mu.Unlock()

	if !ok {
		return native.Result{}, errors.NotFound(errors.PhaseCall, "guest function", name)
	}

	if collectFirst {
		f.Collect(true)
	}

	value, exc := fn(args)
	return native.Result{Value: value, Exception: exc}, nil
}

// SetGCEnabled implements native.Collector.
func (f *Fake) SetGCEnabled(enabled bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.gcEnabled
	f.gcEnabled = enabled
	return prev
}

// Collect implements native.Collector. Marks every pointer reachable from
// the bound root sources, then frees the rest and runs their finalizers.
func (f *Fake) Collect(full bool) {
	_ = full // the fake has no incremental mode

	f.mu.Lock()
	if !f.gcEnabled {
		f.mu.Unlock()
		return
	}
	f.collections++

	marked := make(map[native.Ptr]bool, len(f.heap))
	sources := f.sources
	f.mu.Unlock()

	// VisitRoots runs unlocked: sources read frame windows owned by the
	// calling context, not fake state.
	for _, src := range sources {
		src.VisitRoots(func(p native.Ptr) bool {
			marked[p] = true
			return true
		})
	}

	f.mu.Lock()
	var finalizers []func()
	for p, obj := range f.heap {
		if obj.freed || marked[p] {
			continue
		}
		obj.freed = true
		finalizers = append(finalizers, obj.finalizers...)
		obj.finalizers = nil
	}
	f.mu.Unlock()

	for _, fin := range finalizers {
		fin()
	}
}

// Safepoint implements native.Collector. The fake collects eagerly, so a
// safepoint is a full pass.
func (f *Fake) Safepoint() {
	f.Collect(false)
}

// RegisterFinalizer implements native.Collector.
func (f *Fake) RegisterFinalizer(p native.Ptr, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.heap[p]; ok && !obj.freed {
		obj.finalizers = append(obj.finalizers, fn)
	}
}

// Alloc creates a guest heap object holding value and returns its
// unrooted pointer.
func (f *Fake) Alloc(value any) native.Ptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.nextPtr
	f.nextPtr += 8
	f.heap[p] = &object{value: value}
	return p
}

// Value returns the payload stored at p, or false if p was never
// allocated or has been collected.
func (f *Fake) Value(p native.Ptr) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.heap[p]
	if !ok || obj.freed {
		return nil, false
	}
	return obj.value, true
}

// Freed reports whether p has been collected.
func (f *Fake) Freed(p native.Ptr) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.heap[p]
	return ok && obj.freed
}

// Collections returns the number of completed collection passes.
func (f *Fake) Collections() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections
}

// Live returns the number of heap objects not yet collected.
func (f *Fake) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, obj := range f.heap {
		if !obj.freed {
			n++
		}
	}
	return n
}
