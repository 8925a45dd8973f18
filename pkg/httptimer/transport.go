package httptimer

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"sync/atomic"
	"time"

	"github.com/joeabbey/httptimer/pkg/lifecycle"
	"github.com/joeabbey/httptimer/pkg/timer"
)

// ErrBodyClosed is recorded as the failure of a response whose body was
// closed before it was read to the end.
var ErrBodyClosed = errors.New("httptimer: response body closed before EOF")

// contextKey is a custom type for context keys to avoid collisions.
type contextKey struct{}

// timingsKey is the context key for storing Timings.
var timingsKey = contextKey{}

// Transport is an http.RoundTripper that records the lifecycle timings of
// every request it carries. It is safe for concurrent use.
type Transport struct {
	// The underlying transport to use. Built from the options below if not set.
	next http.RoundTripper

	dialer              *net.Dialer
	disableKeepAlives   bool
	tlsHandshakeTimeout time.Duration
	totalTimeout        time.Duration

	clock     func() time.Time
	registry  *timer.Registry
	reporters []Reporter
}

// New creates a new Transport with the given options.
func New(opts ...Option) *Transport {
	t := &Transport{
		clock:               time.Now,
		registry:            timer.Default,
		tlsHandshakeTimeout: 10 * time.Second,
		dialer: &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.next == nil {
		t.next = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         t.dialer.DialContext,
			TLSHandshakeTimeout: t.tlsHandshakeTimeout,
			DisableKeepAlives:   t.disableKeepAlives,
			ForceAttemptHTTP2:   true,
		}
	}

	return t
}

// RoundTrip implements http.RoundTripper.
// The request is sent through the underlying transport on a copy carrying a
// client trace; the timings are available from either request, the response
// and the response's request context.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	x := &exchange{
		req:       req,
		bus:       lifecycle.NewBus(),
		sock:      &connSocket{Bus: lifecycle.NewBus(), secure: req.URL.Scheme == "https"},
		reporters: t.reporters,
	}

	timings := timer.Instrument(x.bus,
		timer.WithClock(t.clock),
		timer.WithRegistry(t.registry),
		timer.WithHook(x.complete),
	)
	start := timings.Snapshot().Start

	ctx := req.Context()
	for _, r := range t.reporters {
		ctx = r.Begin(ctx, req, start)
	}
	if t.totalTimeout > 0 {
		ctx, x.cancel = context.WithTimeout(ctx, t.totalTimeout)
	}
	ctx = context.WithValue(ctx, timingsKey, timings)
	ctx = httptrace.WithClientTrace(ctx, x.trace())
	x.ctx = ctx

	out := req.WithContext(ctx)
	t.inject(ctx, req, out)
	timer.Track(t.registry, req, timings)
	timer.Track(t.registry, out, timings)

	resp, err := t.next.RoundTrip(out)
	if err != nil {
		x.bus.Emit(lifecycle.Error, err)
		return resp, err
	}

	x.status = resp.StatusCode
	timer.Track(t.registry, resp, timings)

	rb := lifecycle.NewBus()
	if resp.Body == nil || resp.Body == http.NoBody || resp.StatusCode == http.StatusSwitchingProtocols {
		x.bus.Emit(lifecycle.Response, rb)
		rb.Emit(lifecycle.End, nil)
		return resp, nil
	}

	resp.Body = &body{rc: resp.Body, bus: rb}
	x.bus.Emit(lifecycle.Response, rb)
	return resp, nil
}

// inject lets reporters add headers to out. The headers are copied first
// since a RoundTripper must not modify the caller's request.
func (t *Transport) inject(ctx context.Context, req, out *http.Request) {
	cloned := false
	for _, r := range t.reporters {
		inj, ok := r.(HeaderInjector)
		if !ok {
			continue
		}
		if !cloned {
			out.Header = req.Header.Clone()
			if out.Header == nil {
				out.Header = make(http.Header)
			}
			cloned = true
		}
		inj.Inject(ctx, out.Header)
	}
}

// GetTimings retrieves the timing record of a request sent through a
// Transport using the default registry. It accepts both the request passed to
// the client and the one attached to the response. It returns nil if no
// timing information is available.
func GetTimings(req *http.Request) *timer.Timings {
	if req == nil {
		return nil
	}
	if t := FromContext(req.Context()); t != nil {
		return t
	}
	t, _ := timer.Find(timer.Default, req)
	return t
}

// ResponseTimings retrieves the timing record of the exchange that produced resp.
func ResponseTimings(resp *http.Response) *timer.Timings {
	if resp == nil {
		return nil
	}
	if t, ok := timer.Find(timer.Default, resp); ok {
		return t
	}
	return GetTimings(resp.Request)
}

// FromContext retrieves the timing record stored in the context of an
// outgoing request.
func FromContext(ctx context.Context) *timer.Timings {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(timingsKey).(*timer.Timings)
	return t
}

// exchange is the per-request state shared by the trace hooks, the response
// body and the terminal hook.
type exchange struct {
	req       *http.Request
	bus       *lifecycle.Bus
	sock      *connSocket
	assigned  atomic.Bool
	connected atomic.Bool
	reporters []Reporter

	ctx    context.Context
	cancel context.CancelFunc
	status int
}

func (x *exchange) trace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) {
			x.assign(lifecycle.StateResolving)
		},
		DNSDone: func(info httptrace.DNSDoneInfo) {
			if info.Err != nil {
				return
			}
			x.sock.advance(lifecycle.StateConnecting)
			x.sock.Emit(lifecycle.Lookup, nil)
		},
		ConnectStart: func(network, addr string) {
			x.assign(lifecycle.StateConnecting)
		},
		ConnectDone: func(network, addr string, err error) {
			if err != nil || !x.connected.CompareAndSwap(false, true) {
				return
			}
			if x.sock.secure {
				x.sock.advance(lifecycle.StateHandshaking)
			} else {
				x.sock.advance(lifecycle.StateReady)
			}
			x.sock.Emit(lifecycle.Connect, nil)
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, err error) {
			if err != nil {
				return
			}
			x.sock.advance(lifecycle.StateReady)
			x.sock.Emit(lifecycle.SecureConnect, nil)
		},
		GotConn: func(httptrace.GotConnInfo) {
			x.assign(lifecycle.StateReady)
		},
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				x.bus.Emit(lifecycle.Finish, nil)
			}
		},
	}
}

// assign moves the socket to at least state and emits the socket signal the
// first time it is called.
func (x *exchange) assign(state lifecycle.ConnState) {
	x.sock.advance(state)
	if x.assigned.CompareAndSwap(false, true) {
		x.bus.Emit(lifecycle.Socket, x.sock)
	}
}

// complete runs once the exchange has ended or failed.
func (x *exchange) complete(rec timer.Record) {
	o := Outcome{
		Method:     x.req.Method,
		URL:        x.req.URL.String(),
		Host:       x.req.URL.Host,
		Scheme:     x.req.URL.Scheme,
		Path:       x.req.URL.Path,
		StatusCode: x.status,
		Err:        rec.Cause,
		Record:     rec,
	}
	for _, r := range x.reporters {
		r.Report(x.ctx, o)
	}
	if x.cancel != nil {
		x.cancel()
	}
}

// connSocket is the lifecycle view of the connection serving one request.
type connSocket struct {
	*lifecycle.Bus
	state  atomic.Int32
	secure bool
}

func (s *connSocket) State() lifecycle.ConnState {
	return lifecycle.ConnState(s.state.Load())
}

func (s *connSocket) Secure() bool {
	return s.secure
}

func (s *connSocket) advance(to lifecycle.ConnState) {
	for {
		cur := s.state.Load()
		if lifecycle.ConnState(cur) >= to || s.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

// body reports the end or failure of the response body to its emitter.
type body struct {
	rc   io.ReadCloser
	bus  *lifecycle.Bus
	done atomic.Bool
}

func (b *body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		b.finish(lifecycle.End, nil)
	default:
		b.finish(lifecycle.Error, err)
	}
	return n, err
}

func (b *body) Close() error {
	err := b.rc.Close()
	b.finish(lifecycle.Error, ErrBodyClosed)
	return err
}

func (b *body) finish(sig lifecycle.Signal, payload any) {
	if b.done.CompareAndSwap(false, true) {
		b.bus.Emit(sig, payload)
	}
}
