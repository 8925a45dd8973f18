package lifecycle

import "sync"

// once is a subscription that fires at most one time and removes itself from
// its emitter before running the wrapped listener.
type once struct {
	mu   sync.Mutex
	e    Emitter
	sig  Signal
	id   ID
	done bool
	fn   Listener
}

func subscribeOnce(e Emitter, sig Signal, fn Listener, add func(Signal, Listener) ID) func() {
	o := &once{e: e, sig: sig, fn: fn}

	// Hold the lock while subscribing so a concurrent emission cannot fire
	// before the ID is known.
	o.mu.Lock()
	o.id = add(sig, o.fire)
	o.mu.Unlock()

	return o.cancel
}

func (o *once) fire(payload any) {
	if !o.finish() {
		return
	}
	o.fn(payload)
}

func (o *once) cancel() {
	o.finish()
}

// finish detaches the subscription and reports whether this call did so.
func (o *once) finish() bool {
	o.mu.Lock()
	if o.done {
		o.mu.Unlock()
		return false
	}
	o.done = true
	id := o.id
	o.mu.Unlock()

	o.e.Off(o.sig, id)
	return true
}

// Once appends a one-shot listener to sig. The returned function cancels the
// subscription if it has not fired yet; calling it more than once is harmless.
func Once(e Emitter, sig Signal, fn Listener) (cancel func()) {
	return subscribeOnce(e, sig, fn, e.On)
}

// PrependOnce is like Once but places the listener ahead of existing ones.
func PrependOnce(e Emitter, sig Signal, fn Listener) (cancel func()) {
	return subscribeOnce(e, sig, fn, e.Prepend)
}

// First subscribes a one-shot listener that runs before any other listener
// the emitter allows. Emitters implementing Observer run it ahead of every
// ordinary listener; others get PrependOnce.
func First(e Emitter, sig Signal, fn Listener) (cancel func()) {
	if obs, ok := e.(Observer); ok {
		return subscribeOnce(e, sig, fn, obs.Observe)
	}
	return PrependOnce(e, sig, fn)
}
