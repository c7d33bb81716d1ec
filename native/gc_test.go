package native

import "testing"

type countingCollector struct {
	enabled  bool
	collects int
	full     int
}

func (c *countingCollector) SetGCEnabled(enabled bool) bool {
	prev := c.enabled
	c.enabled = enabled
	return prev
}

func (c *countingCollector) Collect(full bool) {
	c.collects++
	if full {
		c.full++
	}
}

func (c *countingCollector) Safepoint() {}

func (c *countingCollector) RegisterFinalizer(Ptr, func()) {}

func TestGC_NestedDisable(t *testing.T) {
	cc := &countingCollector{enabled: true}
	g := NewGC(cc)

	restoreOuter := g.Disable()
	if cc.enabled {
		t.Fatal("collector should be disabled")
	}

	restoreInner := g.Disable()
	restoreInner()
	if cc.enabled {
		t.Fatal("collector must stay disabled until the outer restore runs")
	}

	restoreOuter()
	if !cc.enabled {
		t.Fatal("collector should be re-enabled")
	}
}

func TestGC_RestoreIdempotent(t *testing.T) {
	cc := &countingCollector{enabled: true}
	g := NewGC(cc)

	restore := g.Disable()
	restore()
	restore()
	if !g.Enabled() {
		t.Fatal("double restore must not underflow the disable counter")
	}
}

func TestGC_CollectSkippedWhileDisabled(t *testing.T) {
	cc := &countingCollector{enabled: true}
	g := NewGC(cc)

	restore := g.Disable()
	g.Collect(true)
	if cc.collects != 0 {
		t.Fatal("collect should be skipped while disabled")
	}
	restore()

	g.Collect(true)
	if cc.collects != 1 || cc.full != 1 {
		t.Fatalf("collects = %d full = %d, want 1/1", cc.collects, cc.full)
	}
}
