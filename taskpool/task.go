package taskpool

import (
	"context"

	"github.com/wippyai/gc-runtime/gcstack"
	"github.com/wippyai/gc-runtime/native"
)

// Task is a running task's view of its shadow stack and of the guest.
// All methods are safe to call from the task's goroutine; the pool keeps
// frame writes and collection scans apart.
//
// A Task is single-owner like the frame under it: don't share one across
// goroutines.
type Task struct {
	pool  *Pool
	ctx   context.Context
	frame *gcstack.Frame
}

// Context returns the context the task was spawned with.
func (t *Task) Context() context.Context {
	return t.ctx
}

// Root roots p in the task's current frame.
func (t *Task) Root(p native.Ptr) (gcstack.Handle, error) {
	t.pool.world.RLock()
	defer t.pool.world.RUnlock()
	return t.frame.Root(p)
}

// Output reserves a slot in the task's current frame, for keeping a
// nested scope's result alive at this frame's lifetime.
func (t *Task) Output() (*gcstack.Output, error) {
	t.pool.world.RLock()
	defer t.pool.world.RUnlock()
	return t.frame.Output()
}

// ReusableSlot reserves an overwritable slot in the task's current frame.
func (t *Task) ReusableSlot() (*gcstack.ReusableSlot, error) {
	t.pool.world.RLock()
	defer t.pool.world.RUnlock()
	return t.frame.ReusableSlot()
}

// NRoots returns the current frame's root count.
func (t *Task) NRoots() int {
	t.pool.world.RLock()
	defer t.pool.world.RUnlock()
	return t.frame.NRoots()
}

// Capacity returns the current frame's root capacity.
func (t *Task) Capacity() int {
	return t.frame.Capacity()
}

// Scope runs fn with a frame nested inside the task's current one. The
// nested frame and its roots are released when fn returns; while it is
// live, the outer Task may only be written through outputs reserved
// before the call.
func (t *Task) Scope(capacity int, fn func(t *Task) error) error {
	t.pool.world.RLock()
	nested, owner := t.frame.Nest(capacity)
	t.pool.world.RUnlock()
	defer func() {
		t.pool.world.RLock()
		defer t.pool.world.RUnlock()
		owner.Close()
	}()

	return fn(&Task{pool: t.pool, ctx: t.ctx, frame: nested})
}

// Call invokes an exported guest function on the coordinator thread and
// roots the result in the task's current frame. A thrown guest value
// comes back as *gcstack.Exception, rooted the same way.
func (t *Task) Call(ctx context.Context, name string, args ...gcstack.Handle) (gcstack.Handle, error) {
	return t.CallInto(ctx, t.frame, name, args...)
}

// CallInto is Call with an explicit rooting target, typically an output
// reserved in an outer frame.
func (t *Task) CallInto(ctx context.Context, target gcstack.Target, name string, args ...gcstack.Handle) (gcstack.Handle, error) {
	var h gcstack.Handle
	err := t.pool.send(ctx, job{ctx: ctx, fn: func() error {
		var err error
		h, err = gcstack.Call(ctx, t.pool.rt, target, name, args...)
		return err
	}})
	return h, err
}

// Collect triggers a collection pass on the coordinator thread.
func (t *Task) Collect(ctx context.Context, full bool) error {
	return t.pool.send(ctx, job{ctx: ctx, fn: func() error {
		t.pool.gc.Collect(full)
		return nil
	}})
}

// Safepoint yields to the collector on the coordinator thread.
func (t *Task) Safepoint(ctx context.Context) error {
	return t.pool.send(ctx, job{ctx: ctx, fn: func() error {
		t.pool.gc.Safepoint()
		return nil
	}})
}
