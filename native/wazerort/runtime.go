package wazerort

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Config configures a wazero-hosted guest runtime.
type Config struct {
	// Guest is the WebAssembly binary exporting the guest entry points
	// and, optionally, the GC hooks described in the package docs.
	Guest []byte

	// MemoryLimitPages caps the guest's linear memory in 64KB pages.
	// 0 keeps wazero's default.
	MemoryLimitPages uint32
}

// Runtime hosts one guest module and implements native.Runtime over its
// exports. Create it with New, then drive it through a session or pool,
// which call Init on the owning thread.
type Runtime struct {
	cfg Config

	rt  wazero.Runtime
	mod api.Module

	fnEnable     api.Function
	fnCollect    api.Function
	fnSafepoint  api.Function
	fnRootsClear api.Function
	fnRootsPush  api.Function
	fnException  api.Function
	fnShutdown   api.Function

	mu          sync.Mutex
	sources     []native.RootSource
	finalizers  map[native.Ptr][]func()
	initialized bool
	shutdown    bool
}

// New returns an uninitialized runtime for cfg.
func New(cfg Config) *Runtime {
	return &Runtime{
		cfg:        cfg,
		finalizers: make(map[native.Ptr][]func()),
	}
}

// Init implements native.Runtime. It instantiates the guest module and
// resolves its GC hooks.
func (r *Runtime) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return errors.AlreadyInitialized("wazero guest")
	}
	if len(r.cfg.Guest) == 0 {
		return errors.InvalidInput(errors.PhaseInit, "no guest binary configured")
	}

	rcfg := wazero.NewRuntimeConfig()
	if r.cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(r.cfg.MemoryLimitPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rcfg)

	_, err := rt.NewHostModuleBuilder("gcruntime").
		NewFunctionBuilder().
		WithFunc(func(_ context.Context, p uint64) {
			r.objectFreed(native.Ptr(p))
		}).
		Export("object_freed").
		Instantiate(ctx)
	if err != nil {
		rt.Close(ctx) //nolint:errcheck
		return errors.Wrap(errors.PhaseInit, errors.KindAllocation, err, "host module instantiation failed")
	}

	mod, err := rt.InstantiateWithConfig(ctx, r.cfg.Guest,
		wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		rt.Close(ctx) //nolint:errcheck
		return errors.Wrap(errors.PhaseInit, errors.KindAllocation, err, "guest instantiation failed")
	}

	r.rt = rt
	r.mod = mod
	r.fnEnable = mod.ExportedFunction("gc_enable")
	r.fnCollect = mod.ExportedFunction("gc_collect")
	r.fnSafepoint = mod.ExportedFunction("gc_safepoint")
	r.fnRootsClear = mod.ExportedFunction("gc_roots_clear")
	r.fnRootsPush = mod.ExportedFunction("gc_roots_push")
	r.fnException = mod.ExportedFunction("gc_exception")
	r.fnShutdown = mod.ExportedFunction("gc_shutdown")
	r.initialized = true

	Logger().Debug("guest instantiated",
		zap.Bool("collector_hooks", r.fnCollect != nil),
		zap.Int("guest_bytes", len(r.cfg.Guest)))
	return nil
}

// Shutdown implements native.Runtime.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized || r.shutdown {
		return errors.NotInitialized(errors.PhaseShutdown, "wazero guest")
	}
	r.shutdown = true

	if r.fnShutdown != nil {
		if _, err := r.fnShutdown.Call(ctx); err != nil {
			Logger().Warn("guest shutdown hook failed", zap.Error(err))
		}
	}
	return r.rt.Close(ctx)
}

// BindRoots implements native.Runtime.
func (r *Runtime) BindRoots(src native.RootSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// UnbindRoots implements native.Runtime.
func (r *Runtime) UnbindRoots(src native.RootSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.sources {
		if s == src {
			r.sources = append(r.sources[:i], r.sources[i+1:]...)
			return
		}
	}
}

// SetGCEnabled implements native.Collector.
func (r *Runtime) SetGCEnabled(enabled bool) bool {
	if r.fnEnable == nil {
		return true
	}
	var arg uint64
	if enabled {
		arg = 1
	}
	rets, err := r.fnEnable.Call(context.Background(), arg)
	if err != nil {
		Logger().Warn("gc_enable failed", zap.Error(err))
		return true
	}
	return len(rets) > 0 && rets[0] != 0
}

// Collect implements native.Collector. The bound root chains are
// replayed into the guest before the pass runs.
func (r *Runtime) Collect(full bool) {
	if r.fnCollect == nil {
		return
	}
	ctx := context.Background()

	r.pushRoots(ctx)

	var arg uint64
	if full {
		arg = 1
	}
	if _, err := r.fnCollect.Call(ctx, arg); err != nil {
		Logger().Warn("gc_collect failed", zap.Error(err))
	}
}

func (r *Runtime) pushRoots(ctx context.Context) {
	if r.fnRootsClear == nil || r.fnRootsPush == nil {
		return
	}
	if _, err := r.fnRootsClear.Call(ctx); err != nil {
		Logger().Warn("gc_roots_clear failed", zap.Error(err))
		return
	}

	r.mu.Lock()
	sources := append([]native.RootSource(nil), r.sources...)
	r.mu.Unlock()

	for _, src := range sources {
		src.VisitRoots(func(p native.Ptr) bool {
			_, err := r.fnRootsPush.Call(ctx, uint64(p))
			return err == nil
		})
	}
}

// Safepoint implements native.Collector.
func (r *Runtime) Safepoint() {
	if r.fnSafepoint == nil {
		return
	}
	if _, err := r.fnSafepoint.Call(context.Background()); err != nil {
		Logger().Warn("gc_safepoint failed", zap.Error(err))
	}
}

// RegisterFinalizer implements native.Collector. The guest reports the
// object's collection through the object_freed host import.
func (r *Runtime) RegisterFinalizer(p native.Ptr, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalizers[p] = append(r.finalizers[p], fn)
}

func (r *Runtime) objectFreed(p native.Ptr) {
	r.mu.Lock()
	fns := r.finalizers[p]
	delete(r.finalizers, p)
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Call implements native.Runtime. Arguments and results are i64 pointer
// words; a trap comes back as a trap error, a thrown guest value through
// the gc_exception hook.
func (r *Runtime) Call(ctx context.Context, name string, args ...native.Ptr) (native.Result, error) {
	r.mu.Lock()
	ready := r.initialized && !r.shutdown
	r.mu.Unlock()
	if !ready {
		return native.Result{}, errors.NotInitialized(errors.PhaseCall, "wazero guest")
	}

	fn := r.mod.ExportedFunction(name)
	if fn == nil {
		return native.Result{}, errors.NotFound(errors.PhaseCall, "guest function", name)
	}

	raw := make([]uint64, len(args))
	for i, a := range args {
		raw[i] = uint64(a)
	}
	rets, err := fn.Call(ctx, raw...)
	if err != nil {
		return native.Result{}, errors.Trap(errors.PhaseCall, err)
	}

	var res native.Result
	if len(rets) > 0 {
		res.Value = native.Ptr(rets[0])
	}
	if r.fnException != nil {
		excs, err := r.fnException.Call(ctx)
		if err != nil {
			return native.Result{}, errors.Trap(errors.PhaseCall, err)
		}
		if len(excs) > 0 {
			res.Exception = native.Ptr(excs[0])
		}
	}
	return res, nil
}
