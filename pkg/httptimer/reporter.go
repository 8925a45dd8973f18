package httptimer

import (
	"context"
	"net/http"
	"time"

	"github.com/joeabbey/httptimer/pkg/timer"
)

// Outcome describes a finished exchange.
type Outcome struct {
	Method     string
	URL        string
	Host       string
	Scheme     string
	Path       string
	StatusCode int // 0 when no response was received
	Err        error
	Record     timer.Record
}

// Failed reports whether the exchange ended with an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Status returns "error" for failed exchanges and "success" otherwise.
func (o Outcome) Status() string {
	if o.Failed() {
		return "error"
	}
	return "success"
}

// Reporter is told when an exchange starts and when it ends.
//
// Begin runs on the caller's goroutine before the request is sent; the
// context it returns becomes the request context, so a reporter can carry
// state from Begin to Report through it. Report runs exactly once, after the
// response body has been read to the end, closed, or failed, or after the
// request itself failed.
type Reporter interface {
	Begin(ctx context.Context, req *http.Request, start time.Time) context.Context
	Report(ctx context.Context, o Outcome)
}

// HeaderInjector is implemented by reporters that add headers to the
// outgoing request, such as trace context. Inject runs after every Begin, on
// a copy of the request headers.
type HeaderInjector interface {
	Inject(ctx context.Context, header http.Header)
}

// ReporterFunc adapts a function to a Reporter that only reports.
type ReporterFunc func(ctx context.Context, o Outcome)

// Begin implements Reporter.
func (f ReporterFunc) Begin(ctx context.Context, _ *http.Request, _ time.Time) context.Context {
	return ctx
}

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, o Outcome) {
	f(ctx, o)
}
