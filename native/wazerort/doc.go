// Package wazerort hosts a guest runtime compiled to WebAssembly,
// using wazero as the execution engine.
//
// The guest binary opts into collector integration by exporting hook
// functions; each hook is optional and its absence degrades that feature
// to a no-op:
//
//	gc_enable(i64) -> i64        enable/disable collection, returns previous state
//	gc_collect(i64)              run a collection pass (1 = full)
//	gc_safepoint()               yield to a pending collection
//	gc_roots_clear()             reset the root set before a scan
//	gc_roots_push(i64)           add one root before a collection pass
//	gc_exception() -> i64        last thrown value, 0 if the last call returned
//	gc_shutdown()                guest-side teardown, called before the engine closes
//
// Before every collection pass the host replays the bound root chains
// into the guest through gc_roots_clear/gc_roots_push, so the guest
// collector sees exactly the host's live roots.
//
// Finalizers registered through the host are keyed by object pointer;
// the guest reports collected objects by calling object_freed, imported
// from the "gcruntime" host module.
//
// Exported guest functions called through Call take and return i64
// pointer words.
package wazerort
