package layout

import (
	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Memory reads guest memory one word at a time.
type Memory interface {
	ReadWord(addr native.Ptr) (native.Ptr, error)
}

// Value is a field read result. Word carries the raw bits for KindBits,
// the referenced pointer for the pointer kinds, and the variant's data
// word for KindUnion. Variant is the union selector, -1 for every other
// kind.
type Value struct {
	Kind    Kind
	Word    native.Ptr
	Variant int
}

// Read resolves obj's layout by tag and reads the named field. Fields
// marked atomic are read under the resolver's per-object lock; the lock
// is released on every exit path, including a panicking Memory.
func (r *Resolver) Read(mem Memory, tag, obj native.Ptr, field string) (Value, error) {
	l, err := r.Resolve(tag)
	if err != nil {
		return Value{}, err
	}
	f, err := l.Field(field)
	if err != nil {
		return Value{}, err
	}

	if f.Atomic {
		release := r.lockObject(obj)
		defer release()
	}
	return readField(mem, obj, f)
}

func readField(mem Memory, obj native.Ptr, f Field) (Value, error) {
	addr := obj + native.Ptr(f.Offset)

	switch f.Kind {
	case KindBits, KindPointer:
		w, err := mem.ReadWord(addr)
		if err != nil {
			return Value{}, errors.Wrap(errors.PhaseLayout, errors.KindInvalidInput, err, "field read failed")
		}
		return Value{Kind: f.Kind, Word: w, Variant: -1}, nil

	case KindInlinePointer:
		// The value lives inside the parent; its address is the field's.
		return Value{Kind: f.Kind, Word: addr, Variant: -1}, nil

	case KindUnion:
		sel, err := mem.ReadWord(addr)
		if err != nil {
			return Value{}, errors.Wrap(errors.PhaseLayout, errors.KindInvalidInput, err, "union selector read failed")
		}
		data, err := mem.ReadWord(addr + WordSize)
		if err != nil {
			return Value{}, errors.Wrap(errors.PhaseLayout, errors.KindInvalidInput, err, "union data read failed")
		}
		return Value{Kind: f.Kind, Word: data, Variant: int(uintptr(sel))}, nil

	default:
		return Value{}, errors.Unsupported(errors.PhaseLayout, "field kind "+f.Kind.String())
	}
}
