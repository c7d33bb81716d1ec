package wazerort

import (
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Words exposes the guest's linear memory word by word. It satisfies
// layout.Memory, so field accessors can read guest objects directly.
type Words struct {
	mem api.Memory
}

// Memory returns the guest's linear memory, or nil when the guest
// exports none or the runtime is not initialized.
func (r *Runtime) Memory() *Words {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized || r.shutdown || r.mod.Memory() == nil {
		return nil
	}
	return &Words{mem: r.mod.Memory()}
}

// ReadWord reads the i64 word at addr.
func (w *Words) ReadWord(addr native.Ptr) (native.Ptr, error) {
	// Linear memory is 32-bit addressed; a wider address must fail, not
	// wrap into the low pages.
	if uint64(addr) > math.MaxUint32 {
		return native.Null, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Detail("address %#x outside guest memory", uintptr(addr)).
			Build()
	}
	v, ok := w.mem.ReadUint64Le(uint32(addr))
	if !ok {
		return native.Null, errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			Detail("address %#x outside guest memory", uintptr(addr)).
			Build()
	}
	return native.Ptr(v), nil
}
