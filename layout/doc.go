// Package layout resolves and reads guest value layouts.
//
// Guest objects are opaque pointers; reading a field requires the
// object's type descriptor: field offsets, how each field is stored
// (plain bits, a heap pointer, an inline value, a tagged union) and
// whether the guest mutates it atomically. Descriptors come from a
// Source and are resolved once per type tag, then served from a cache.
//
// Atomically-mutated fields are read under a host-side per-object lock
// so a torn read can't observe a half-written union. The lock is scoped
// to the read and released even if the memory access panics.
package layout
