package layout

import (
	"sync"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// WordSize is the guest machine word in bytes.
const WordSize = 8

// Field describes one field of a guest type.
type Field struct {
	Name   string
	Offset uintptr
	Kind   Kind

	// Atomic marks fields the guest mutates with atomic stores; host
	// reads take the per-object lock.
	Atomic bool
}

// TypeDesc is a guest type's layout as reported by a Source.
type TypeDesc struct {
	Name   string
	Fields []Field
}

// Source produces type descriptors. Describing a type may call into the
// guest, which is why resolved layouts are cached: Describe runs at most
// once per type tag per Resolver.
type Source interface {
	Describe(tag native.Ptr) (TypeDesc, error)
}

// Layout is a resolved, immutable type layout.
type Layout struct {
	name   string
	fields []Field
	byName map[string]int
}

// Name returns the guest type's name.
func (l *Layout) Name() string {
	return l.name
}

// Fields returns the layout's fields in declaration order.
func (l *Layout) Fields() []Field {
	return l.fields
}

// Field looks a field up by name.
func (l *Layout) Field(name string) (Field, error) {
	i, ok := l.byName[name]
	if !ok {
		return Field{}, errors.NotFound(errors.PhaseLayout, "field", name)
	}
	return l.fields[i], nil
}

// Resolver resolves type tags to layouts through a Source, caching each
// resolution, and owns the per-object locks for atomic field access.
type Resolver struct {
	src   Source
	cache sync.Map // native.Ptr -> *Layout

	mu    sync.Mutex
	locks map[native.Ptr]*objectLock
}

type objectLock struct {
	mu   sync.Mutex
	refs int
}

// NewResolver returns a resolver backed by src.
func NewResolver(src Source) *Resolver {
	return &Resolver{
		src:   src,
		locks: make(map[native.Ptr]*objectLock),
	}
}

// Resolve returns the layout for tag, consulting the Source only on the
// first request.
func (r *Resolver) Resolve(tag native.Ptr) (*Layout, error) {
	if cached, ok := r.cache.Load(tag); ok {
		return cached.(*Layout), nil
	}

	desc, err := r.src.Describe(tag)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLayout, errors.KindNotFound, err, "type descriptor unavailable")
	}

	l := &Layout{
		name:   desc.Name,
		fields: append([]Field(nil), desc.Fields...),
		byName: make(map[string]int, len(desc.Fields)),
	}
	for i, f := range l.fields {
		l.byName[f.Name] = i
	}

	// Two racing resolutions of the same tag keep the first stored
	// layout so callers always compare equal pointers.
	actual, _ := r.cache.LoadOrStore(tag, l)
	return actual.(*Layout), nil
}

// lockObject acquires the lock for obj, creating it on first use. The
// returned release function is idempotent and drops the lock entry when
// the last holder releases it.
func (r *Resolver) lockObject(obj native.Ptr) (release func()) {
	r.mu.Lock()
	ol, ok := r.locks[obj]
	if !ok {
		ol = &objectLock{}
		r.locks[obj] = ol
	}
	ol.refs++
	r.mu.Unlock()

	ol.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ol.mu.Unlock()
			r.mu.Lock()
			ol.refs--
			if ol.refs == 0 {
				delete(r.locks, obj)
			}
			r.mu.Unlock()
		})
	}
}
