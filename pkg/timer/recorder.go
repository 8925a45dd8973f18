package timer

import (
	"sync"
	"time"

	"github.com/joeabbey/httptimer/pkg/lifecycle"
)

// Option configures Instrument.
type Option func(*config)

type config struct {
	clock    func() time.Time
	registry *Registry
	hooks    []func(Record)
}

// WithClock sets the clock used for timestamps.
// This allows deterministic testing of timing logic.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithRegistry registers the record in r instead of Default.
func WithRegistry(r *Registry) Option {
	return func(c *config) {
		c.registry = r
	}
}

// WithHook adds a function that runs once with the final record after the
// request ends or fails. Hooks run after every listener has been detached, on
// the goroutine that delivered the terminal signal.
func WithHook(fn func(Record)) Option {
	return func(c *config) {
		c.hooks = append(c.hooks, fn)
	}
}

// recorder owns the subscriptions made for one request. It is referenced only
// from those subscriptions, so dropping the request drops the recorder too.
type recorder struct {
	timings  *Timings
	clock    func() time.Time
	registry *Registry
	hooks    []func(Record)

	mu      sync.Mutex
	cancels []func()
	closed  bool
}

// Instrument starts observing req and returns its live timing record, with
// Start set to now. Every other field fills in as req, its socket and its
// response emit lifecycle signals.
//
// If req is Trackable and was instrumented before, the existing record is
// returned and no new subscriptions are made.
func Instrument(req lifecycle.Emitter, opts ...Option) *Timings {
	cfg := config{
		clock:    time.Now,
		registry: Default,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handle, trackable := lifecycle.HandleFor(req)
	if trackable {
		if existing, ok := cfg.registry.Lookup(handle); ok {
			return existing
		}
	}

	r := &recorder{
		timings:  newTimings(cfg.clock()),
		clock:    cfg.clock,
		registry: cfg.registry,
		hooks:    cfg.hooks,
	}
	if trackable {
		cfg.registry.Register(handle, r.timings)
	}

	r.watchRequest(req)
	return r.timings
}

func (r *recorder) watchRequest(req lifecycle.Emitter) {
	// Failures before any response. Subscribed first so nothing the consumer
	// attaches later can run ahead of it.
	r.track(lifecycle.First(req, lifecycle.Error, r.onError))

	if holder, ok := req.(lifecycle.SocketHolder); ok {
		if sock := holder.AssignedSocket(); sock != nil {
			r.onSocket(sock)
		} else {
			r.track(lifecycle.First(req, lifecycle.Socket, r.onSocket))
		}
	} else {
		r.track(lifecycle.First(req, lifecycle.Socket, r.onSocket))
	}

	if up, ok := req.(lifecycle.UploadReporter); ok && up.Uploaded() {
		r.stamp(lifecycle.Finish, nil)
	} else {
		r.track(lifecycle.First(req, lifecycle.Finish, r.on(lifecycle.Finish)))
	}

	r.track(lifecycle.First(req, lifecycle.Response, r.onResponse))
}

func (r *recorder) onSocket(payload any) {
	if !r.stamp(lifecycle.Socket, nil) {
		return
	}

	sock, ok := payload.(lifecycle.Conn)
	if !ok || sock == nil {
		return
	}

	// A socket that is already past a stage (for example a reused keep-alive
	// connection) will never emit that stage's signal for this request.
	state := sock.State()
	if state < lifecycle.StateConnecting {
		r.track(lifecycle.First(sock, lifecycle.Lookup, r.on(lifecycle.Lookup)))
	}
	if state < lifecycle.StateHandshaking {
		r.track(lifecycle.First(sock, lifecycle.Connect, r.on(lifecycle.Connect)))
	}
	if sock.Secure() && state < lifecycle.StateReady {
		r.track(lifecycle.First(sock, lifecycle.SecureConnect, r.on(lifecycle.SecureConnect)))
	}
}

func (r *recorder) onResponse(payload any) {
	if !r.stamp(lifecycle.Response, nil) {
		return
	}

	if handle, ok := lifecycle.HandleFor(payload); ok {
		r.registry.Register(handle, r.timings)
	}

	resp, ok := payload.(lifecycle.Emitter)
	if !ok || resp == nil {
		return
	}
	r.track(lifecycle.First(resp, lifecycle.Error, r.onError))
	r.track(lifecycle.First(resp, lifecycle.End, r.on(lifecycle.End)))
}

func (r *recorder) onError(payload any) {
	err, _ := payload.(error)
	r.stamp(lifecycle.Error, err)
}

func (r *recorder) on(sig lifecycle.Signal) lifecycle.Listener {
	return func(any) {
		r.stamp(sig, nil)
	}
}

// stamp records sig now and reports whether it was applied. Reaching a
// terminal state detaches every subscription and runs the hooks.
func (r *recorder) stamp(sig lifecycle.Signal, cause error) bool {
	applied, terminal := r.timings.mark(sig, r.clock(), cause)
	if terminal {
		r.close()
	}
	return applied
}

// track keeps cancel until the record is terminal. Subscriptions made after
// that point are released immediately.
func (r *recorder) track(cancel func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		return
	}
	r.cancels = append(r.cancels, cancel)
	r.mu.Unlock()
}

func (r *recorder) close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	cancels := r.cancels
	r.cancels = nil
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}

	if len(r.hooks) == 0 {
		return
	}
	final := r.timings.Snapshot()
	for _, hook := range r.hooks {
		hook(final)
	}
}
