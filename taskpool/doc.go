// Package taskpool runs concurrent host tasks against a single guest
// runtime.
//
// The guest runtime still accepts calls from exactly one OS thread. The
// pool owns that thread with a coordinator loop; tasks run on ordinary
// goroutines and funnel every guest interaction through it. What each
// task keeps for itself is a shadow stack: a page checked out of a
// bounded pool for the task's lifetime, so a task can block on host work
// between guest calls while its roots stay registered.
//
// Checkout is demand-driven. Stacks are created lazily up to the
// configured limit; beyond that, tasks queue and each returned stack is
// handed directly to the longest-waiting task instead of going back to
// the free list.
//
//	pool, err := taskpool.New(ctx, backend, taskpool.Config{Stacks: 4})
//	defer pool.Close(ctx)
//
//	err = pool.Run(ctx, func(t *taskpool.Task) error {
//	    h, err := t.Call(ctx, "compute")
//	    ...
//	    return nil
//	})
//
// Frame writes from task goroutines and collection scans on the
// coordinator are synchronized by the pool; use the Task methods rather
// than reaching into frames directly.
package taskpool
