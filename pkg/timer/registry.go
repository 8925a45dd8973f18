package timer

import (
	"sync"

	"github.com/joeabbey/httptimer/pkg/lifecycle"
)

// pruneEvery is how many registrations happen between sweeps for entries
// whose cleanup has not run yet.
const pruneEvery = 256

// Registry associates requests and responses with their timing records. Keys
// are weak: an entry never keeps its object alive.
type Registry struct {
	mu      sync.Mutex
	entries map[lifecycle.Handle]*Timings
	adds    int
}

// Default is the registry used by Instrument and Extract unless configured
// otherwise.
var Default = NewRegistry()

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[lifecycle.Handle]*Timings)}
}

// Register associates h with t, replacing any previous association. The
// entry is removed once the object behind h is garbage collected. Invalid
// handles are ignored.
func (r *Registry) Register(h lifecycle.Handle, t *Timings) {
	if !h.Valid() || t == nil {
		return
	}

	r.mu.Lock()
	_, existed := r.entries[h]
	r.entries[h] = t
	r.adds++
	if r.adds%pruneEvery == 0 {
		r.prune()
	}
	r.mu.Unlock()

	if !existed && !h.OnCollect(r.forget) {
		r.forget(h)
	}
}

// Lookup returns the record associated with h.
func (r *Registry) Lookup(h lifecycle.Handle) (*Timings, bool) {
	if !h.Valid() {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.entries[h]
	return t, ok
}

// Len returns the number of entries, including ones not yet pruned.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) forget(h lifecycle.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, h)
}

// prune drops entries whose object is gone. Callers hold r.mu.
func (r *Registry) prune() {
	for h := range r.entries {
		if !h.Alive() {
			delete(r.entries, h)
		}
	}
}

// Track associates obj with t and removes the entry once obj is garbage
// collected.
func Track[T any](r *Registry, obj *T, t *Timings) {
	if obj == nil {
		return
	}
	r.Register(lifecycle.HandleOf(obj), t)
}

// Find returns the record associated with obj.
func Find[T any](r *Registry, obj *T) (*Timings, bool) {
	return r.Lookup(lifecycle.HandleOf(obj))
}

// Extract returns the record associated with obj in the Default registry, or
// nil. obj may be a Trackable request passed to Instrument, the response it
// emitted, or any object associated with a record through Track, such as an
// *http.Request or *http.Response.
func Extract[T any](obj *T) *Timings {
	if obj == nil {
		return nil
	}
	if h, ok := lifecycle.HandleFor(any(obj)); ok {
		if t, ok := Default.Lookup(h); ok {
			return t
		}
	}
	t, _ := Find(Default, obj)
	return t
}
