// Package gcruntime provides GC-safe embedding of a garbage-collected
// guest runtime in Go.
//
// The guest owns its heap and moves or frees anything its collector
// cannot prove reachable. This library keeps host-held guest pointers
// alive by registering them on a shadow stack the collector scans:
// frames of rooting slots, pushed and popped in strict LIFO order around
// every piece of host work.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	gc-runtime/
//	├── gcstack/    Shadow stack core: pages, frames, handles, rooting
//	│               targets, guest calls and exceptions
//	├── session/    Synchronous embedding: one owning OS thread, scoped
//	│               frames, process lifecycle
//	├── taskpool/   Concurrent embedding: bounded pool of task stacks
//	│               with a coordinator thread
//	├── layout/     Guest value layout resolution and field accessors
//	├── native/     Guest runtime ABI: Runtime interface, root chain,
//	│               collector surface, plus the wazero-hosted backend
//	│               and a fake for tests
//	└── errors/     Structured error types for debugging
//
// # Quick Start
//
// Initialize a backend, open a session, and do rooted work in a scope:
//
//	backend := wazerort.New(wazerort.Config{Guest: wasmBytes})
//	sess, err := session.New(ctx, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sess.Close(ctx)
//
//	err = sess.Scope(ctx, func(frame *gcstack.Frame) error {
//	    h, err := gcstack.Call(ctx, sess.Runtime(), frame, "compute")
//	    if err != nil {
//	        return err
//	    }
//	    // h is rooted: collections cannot reclaim it inside this scope.
//	    return nil
//	})
//
// # Rooting Model
//
// Every operation that produces a guest pointer takes a rooting target:
// the current frame (lives until the scope ends), an output reserved in
// an outer frame (outlives the current scope), a reusable slot (loop
// bodies that overwrite), or Unrooted when the caller guarantees
// reachability some other way. A full frame is a recoverable error;
// using a frame after its scope closed, or out of LIFO order, is a
// protocol violation and panics.
//
// # Thread Model
//
// The guest accepts calls from one OS thread. A session owns that thread
// directly; a task pool multiplexes it across tasks that each keep a
// private shadow stack, so roots survive while a task blocks on host
// work between guest calls.
package gcruntime
