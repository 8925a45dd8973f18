package lifecycle

import (
	"runtime"
	"weak"
)

// Handle identifies an object without keeping it alive. Handles are
// comparable and two handles made from the same pointer are equal, so they
// can key side tables.
type Handle struct {
	ref ref
}

type ref interface {
	alive() bool
	onCollect(h Handle, fn func(Handle)) bool
}

type weakRef[T any] struct {
	p weak.Pointer[T]
}

func (w weakRef[T]) alive() bool {
	return w.p.Value() != nil
}

func (w weakRef[T]) onCollect(h Handle, fn func(Handle)) bool {
	p := w.p.Value()
	if p == nil {
		return false
	}
	runtime.AddCleanup(p, fn, h)
	return true
}

// HandleOf returns the handle for p. A nil pointer yields the zero Handle.
func HandleOf[T any](p *T) Handle {
	if p == nil {
		return Handle{}
	}
	return Handle{ref: weakRef[T]{p: weak.Make(p)}}
}

// Valid reports whether h was made from a non-nil pointer.
func (h Handle) Valid() bool {
	return h.ref != nil
}

// Alive reports whether the object behind h has not been collected yet.
func (h Handle) Alive() bool {
	return h.ref != nil && h.ref.alive()
}

// OnCollect arranges for fn(h) to run after the object behind h has been
// garbage collected. It reports false when the object is already gone or h
// is invalid.
func (h Handle) OnCollect(fn func(Handle)) bool {
	return h.ref != nil && h.ref.onCollect(h, fn)
}

// Trackable is implemented by objects that can hand out their own Handle.
type Trackable interface {
	Handle() Handle
}

// HandleFor returns the handle of v when v is Trackable.
func HandleFor(v any) (Handle, bool) {
	t, ok := v.(Trackable)
	if !ok {
		return Handle{}, false
	}
	h := t.Handle()
	return h, h.Valid()
}
