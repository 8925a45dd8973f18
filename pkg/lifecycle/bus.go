package lifecycle

import "sync"

type subscription struct {
	id ID
	fn Listener
}

// Bus is an in-memory Emitter. It is safe for concurrent use.
//
// Emit delivers to observers first and then to ordinary listeners in
// subscription order. Delivery works on a snapshot taken when Emit is called,
// so listeners may subscribe or unsubscribe from inside a callback.
type Bus struct {
	mu        sync.Mutex
	next      ID
	observers map[Signal][]subscription
	listeners map[Signal][]subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// On implements Emitter.
func (b *Bus) On(sig Signal, fn Listener) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSubscription(fn)
	if b.listeners == nil {
		b.listeners = make(map[Signal][]subscription)
	}
	b.listeners[sig] = append(b.listeners[sig], sub)
	return sub.id
}

// Prepend implements Emitter.
func (b *Bus) Prepend(sig Signal, fn Listener) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSubscription(fn)
	if b.listeners == nil {
		b.listeners = make(map[Signal][]subscription)
	}
	subs := make([]subscription, 0, len(b.listeners[sig])+1)
	subs = append(subs, sub)
	b.listeners[sig] = append(subs, b.listeners[sig]...)
	return sub.id
}

// Observe implements Observer. Observers run in the order they subscribed.
func (b *Bus) Observe(sig Signal, fn Listener) ID {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSubscription(fn)
	if b.observers == nil {
		b.observers = make(map[Signal][]subscription)
	}
	b.observers[sig] = append(b.observers[sig], sub)
	return sub.id
}

// Off implements Emitter.
func (b *Bus) Off(sig Signal, id ID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if remove(b.observers, sig, id) {
		return
	}
	remove(b.listeners, sig, id)
}

// ListenerCount implements ListenerCounter. Observers are included.
func (b *Bus) ListenerCount(sig Signal) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers[sig]) + len(b.listeners[sig])
}

// Emit delivers payload to every subscriber of sig and reports whether there
// was at least one.
func (b *Bus) Emit(sig Signal, payload any) bool {
	b.mu.Lock()
	subs := make([]subscription, 0, len(b.observers[sig])+len(b.listeners[sig]))
	subs = append(subs, b.observers[sig]...)
	subs = append(subs, b.listeners[sig]...)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.fn(payload)
	}
	return len(subs) > 0
}

// Handle implements Trackable.
func (b *Bus) Handle() Handle {
	return HandleOf(b)
}

func (b *Bus) newSubscription(fn Listener) subscription {
	b.next++
	return subscription{id: b.next, fn: fn}
}

func remove(m map[Signal][]subscription, sig Signal, id ID) bool {
	subs := m[sig]
	for i, sub := range subs {
		if sub.id != id {
			continue
		}
		// Copy so snapshots held by in-flight emissions stay intact.
		rest := make([]subscription, 0, len(subs)-1)
		rest = append(rest, subs[:i]...)
		rest = append(rest, subs[i+1:]...)
		if len(rest) == 0 {
			delete(m, sig)
		} else {
			m[sig] = rest
		}
		return true
	}
	return false
}
