package httptimer

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/joeabbey/httptimer/pkg/timer"
)

// Option is a functional option for configuring a Transport.
type Option func(*Transport)

// WithKeepAlives configures whether to use HTTP keep-alives.
// By default, keep-alives are enabled for better performance.
// Set to false so that every request measures a fresh connection.
func WithKeepAlives(enabled bool) Option {
	return func(t *Transport) {
		t.disableKeepAlives = !enabled
	}
}

// WithTimeout configures connection and total timeouts.
// If total is 0, no total timeout is set. The total timeout covers the whole
// exchange, including reading the response body.
func WithTimeout(connect, total time.Duration) Option {
	return func(t *Transport) {
		if t.dialer == nil {
			t.dialer = &net.Dialer{}
		}
		t.dialer.Timeout = connect
		if !t.disableKeepAlives {
			t.dialer.KeepAlive = connect
		} else {
			t.dialer.KeepAlive = -1 * time.Second
		}
		t.totalTimeout = total
	}
}

// WithTransport sets a custom base transport.
// This allows layering timing on top of existing transports. Options that
// shape the default transport (keep-alives, dialer, TLS timeout) are ignored.
func WithTransport(base http.RoundTripper) Option {
	return func(t *Transport) {
		t.next = base
	}
}

// WithDialer sets a custom dialer.
// This allows full control over the connection establishment.
func WithDialer(dialer *net.Dialer) Option {
	return func(t *Transport) {
		t.dialer = dialer
	}
}

// WithTLSHandshakeTimeout sets the TLS handshake timeout.
func WithTLSHandshakeTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		t.tlsHandshakeTimeout = timeout
	}
}

// WithClock sets a custom clock function for testing.
// This allows deterministic testing of timing logic.
func WithClock(clock func() time.Time) Option {
	return func(t *Transport) {
		t.clock = clock
	}
}

// WithRegistry records timings in r instead of timer.Default. GetTimings and
// ResponseTimings only consult the default registry; use timer.Find with r.
func WithRegistry(r *timer.Registry) Option {
	return func(t *Transport) {
		t.registry = r
	}
}

// WithReporter adds a Reporter that is told about every exchange.
func WithReporter(r Reporter) Option {
	return func(t *Transport) {
		t.reporters = append(t.reporters, r)
	}
}

// WithLogger logs one record per exchange to logger.
func WithLogger(logger *slog.Logger) Option {
	return WithReporter(NewLogReporter(logger))
}
