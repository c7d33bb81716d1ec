package wazerort

import (
	"context"
	"testing"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/layout"
	"github.com/wippyai/gc-runtime/native"
)

// testGuest is a minimal guest binary, encoded by hand:
//
//	(module
//	  (memory (export "memory") 1)
//	  (data (i32.const 8) "\ef\be\ad\de\00\00\00\00")
//	  (func (export "answer") (result i64) (i64.const 42))
//	  (func (export "echo") (param i64) (result i64) (local.get 0)))
var testGuest = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> i64, (i64) -> i64
	0x01, 0x0a, 0x02, 0x60, 0x00, 0x01, 0x7e, 0x60, 0x01, 0x7e, 0x01, 0x7e,
	// function: two funcs using types 0 and 1
	0x03, 0x03, 0x02, 0x00, 0x01,
	// memory: one page
	0x05, 0x03, 0x01, 0x00, 0x01,
	// export: answer, echo, memory
	0x07, 0x1a, 0x03,
	0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
	0x04, 'e', 'c', 'h', 'o', 0x00, 0x01,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	// code: i64.const 42; local.get 0
	0x0a, 0x0b, 0x02,
	0x04, 0x00, 0x42, 0x2a, 0x0b,
	0x04, 0x00, 0x20, 0x00, 0x0b,
	// data: 0xdeadbeef at address 8
	0x0b, 0x0e, 0x01, 0x00, 0x41, 0x08, 0x0b,
	0x08, 0xef, 0xbe, 0xad, 0xde, 0x00, 0x00, 0x00, 0x00,
}

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	ctx := context.Background()
	r := New(Config{Guest: testGuest})
	if err := r.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { r.Shutdown(ctx) }) //nolint:errcheck
	return r
}

func TestRuntime_InitValidation(t *testing.T) {
	ctx := context.Background()

	err := New(Config{}).Init(ctx)
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindInvalidInput {
		t.Fatalf("Init without guest = %v, want invalid_input", err)
	}

	if err := New(Config{Guest: []byte("not wasm")}).Init(ctx); err == nil {
		t.Fatal("Init with garbage bytes should fail")
	}

	r := newTestRuntime(t)
	err = r.Init(ctx)
	werr, ok = err.(*errors.Error)
	if !ok || werr.Kind != errors.KindAlreadyInit {
		t.Fatalf("second Init = %v, want already_initialized", err)
	}
}

func TestRuntime_Call(t *testing.T) {
	ctx := context.Background()
	r := newTestRuntime(t)

	res, err := r.Call(ctx, "answer")
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if res.Value != 42 {
		t.Errorf("answer = %d, want 42", uintptr(res.Value))
	}
	if res.Threw() {
		t.Error("answer should not throw; no gc_exception hook exported")
	}

	res, err = r.Call(ctx, "echo", native.Ptr(0x1234))
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 0x1234 {
		t.Errorf("echo = %#x", uintptr(res.Value))
	}

	_, err = r.Call(ctx, "missing")
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindNotFound {
		t.Fatalf("missing function = %v, want not_found", err)
	}
}

func TestRuntime_CollectorHooksOptional(t *testing.T) {
	r := newTestRuntime(t)

	// The test guest exports no GC hooks; every collector operation
	// degrades to a no-op instead of failing.
	if !r.SetGCEnabled(false) {
		t.Error("SetGCEnabled without a hook should report enabled")
	}
	chain := native.NewChain()
	r.BindRoots(chain)
	r.Collect(true)
	r.Safepoint()
	r.UnbindRoots(chain)

	r.RegisterFinalizer(native.Ptr(0x10), func() {
		t.Error("finalizer must not run without a guest report")
	})
}

func TestRuntime_Shutdown(t *testing.T) {
	ctx := context.Background()
	r := New(Config{Guest: testGuest})
	if err := r.Init(ctx); err != nil {
		t.Fatal(err)
	}

	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	_, err := r.Call(ctx, "answer")
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindNotInitialized {
		t.Fatalf("Call after Shutdown = %v, want not_initialized", err)
	}
	if err := r.Shutdown(ctx); err == nil {
		t.Fatal("second Shutdown should fail")
	}
}

type wordSource struct{}

func (wordSource) Describe(tag native.Ptr) (layout.TypeDesc, error) {
	return layout.TypeDesc{
		Name: "Probe",
		Fields: []layout.Field{
			{Name: "word", Offset: 8, Kind: layout.KindBits},
		},
	}, nil
}

func TestRuntime_MemoryReads(t *testing.T) {
	r := newTestRuntime(t)

	mem := r.Memory()
	if mem == nil {
		t.Fatal("guest exports a memory; Memory() returned nil")
	}

	w, err := mem.ReadWord(8)
	if err != nil {
		t.Fatalf("ReadWord failed: %v", err)
	}
	if w != 0xdeadbeef {
		t.Errorf("word at 8 = %#x, want 0xdeadbeef", uintptr(w))
	}

	if _, err := mem.ReadWord(native.Ptr(1 << 30)); err == nil {
		t.Error("out-of-range read should fail")
	}

	// Addresses beyond 32 bits must not wrap into the low pages.
	wide := uint64(1)<<32 + 8
	if _, err := mem.ReadWord(native.Ptr(wide)); err == nil {
		t.Error("wide-address read should fail, not alias address 8")
	}

	// Field accessors read guest objects through the same memory.
	resolver := layout.NewResolver(wordSource{})
	v, err := resolver.Read(mem, native.Ptr(0x1), native.Null, "word")
	if err != nil {
		t.Fatalf("layout read failed: %v", err)
	}
	if v.Word != 0xdeadbeef {
		t.Errorf("field word = %#x", uintptr(v.Word))
	}
}
