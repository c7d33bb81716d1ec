package native

import "sync"

// GC wraps a Collector with nested disable tracking. Disable calls stack:
// collection is re-enabled only when every restore function returned by
// Disable has run.
type GC struct {
	c        Collector
	mu       sync.Mutex
	disabled int
}

// NewGC returns a GC managing c.
func NewGC(c Collector) *GC {
	return &GC{c: c}
}

// Disable turns collection off and returns a function that undoes this
// level of disabling. The restore function is idempotent.
func (g *GC) Disable() (restore func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disabled == 0 {
		g.c.SetGCEnabled(false)
	}
	g.disabled++

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			g.disabled--
			if g.disabled == 0 {
				g.c.SetGCEnabled(true)
			}
		})
	}
}

// Enabled reports whether collection is currently enabled.
func (g *GC) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled == 0
}

// Collect triggers a collection pass unless collection is disabled.
func (g *GC) Collect(full bool) {
	g.mu.Lock()
	disabled := g.disabled > 0
	g.mu.Unlock()

	if !disabled {
		g.c.Collect(full)
	}
}

// Safepoint forwards to the underlying collector.
func (g *GC) Safepoint() {
	g.c.Safepoint()
}

// RegisterFinalizer forwards to the underlying collector.
func (g *GC) RegisterFinalizer(p Ptr, fn func()) {
	g.c.RegisterFinalizer(p, fn)
}
