// Package native defines the boundary between the host and the guest
// runtime's native ABI.
//
// The guest runtime owns a garbage collector that may run at any call into
// the guest. The collector frees any heap value not reachable from its root
// set, and host-side references are invisible to it. This package provides
// the pieces the rest of the library builds on to keep host-held values
// alive:
//
//   - Ptr, an opaque reference to a guest heap value
//   - Chain, the per-owning-context "current top of shadow stack" with
//     Push/Pop as its only writers, enumerated by collection passes
//   - Runtime, the backend interface: guest calls plus the collector
//     callbacks (enable/disable, collect, safepoint, finalizers)
//   - GC, a small wrapper adding nested disable tracking
//
// A Chain is owned by exactly one session or task and must never be shared
// across owning contexts. Backends are told about chains with BindRoots and
// walk them during collection via VisitRoots.
//
// Concrete backends live in subpackages: wazerort hosts a guest runtime in
// a wazero module, nativetest provides a fake collector for tests.
package native
