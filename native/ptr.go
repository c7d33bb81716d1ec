package native

// Ptr is an opaque reference to a value on the guest runtime's heap.
// The zero value is the null reference.
//
// A raw Ptr is not protected from collection. Outside of slot storage and
// backend plumbing it should only exist transiently, between receiving it
// from a guest call and handing it to a rooting target.
type Ptr uintptr

// Null is the null guest reference.
const Null Ptr = 0

// IsNull reports whether p is the null reference.
func (p Ptr) IsNull() bool {
	return p == Null
}
