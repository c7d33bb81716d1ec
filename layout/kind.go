package layout

// Kind classifies how a field's value is stored in its parent object.
type Kind uint8

const (
	// KindBits is a plain value stored inline; the word at the field
	// offset is the value itself, never a pointer.
	KindBits Kind = iota

	// KindUnion is a tagged variant: a selector word at the field offset
	// followed by the variant's data word.
	KindUnion

	// KindPointer is a reference to a separately-allocated guest object.
	KindPointer

	// KindInlinePointer is a pointer-typed value stored inline in the
	// parent; the field's address is the value's address.
	KindInlinePointer
)

var kindNames = [...]string{
	KindBits:          "bits",
	KindUnion:         "union",
	KindPointer:       "pointer",
	KindInlinePointer: "inline-pointer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsPointer reports whether the field's value refers to guest memory
// that the caller may need to root.
func (k Kind) IsPointer() bool {
	return k == KindPointer || k == KindInlinePointer
}
