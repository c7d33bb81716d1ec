// Package session owns the guest runtime's process lifecycle and the
// synchronous scope API.
//
// The guest runtime is initialized exactly once per process and torn down
// exactly once at exit. One dedicated OS thread is the only execution
// context that calls into the guest; Scope submits work to that thread
// and hands the callback a fresh shadow-stack frame:
//
//	sess, err := session.New(ctx, backend)
//	defer sess.Close(ctx)
//
//	err = sess.Scope(ctx, func(frame *gcstack.Frame) error {
//	    h, err := gcstack.Call(ctx, sess.Runtime(), frame, "compute")
//	    ...
//	    return nil
//	})
//
// Everything rooted in the scope's frame becomes collectable when the
// callback returns. Values that must survive a scope belong in guest
// globals or must be recomputed; the scope boundary is the root lifetime.
//
// Scopes are blocking: a callback runs to completion on the owning thread
// and starves other scopes until done. That is a deliberate
// simplification; concurrent workloads belong to the taskpool package.
package session
