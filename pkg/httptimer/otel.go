package httptimer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// OpenTelemetryConfig holds configuration for OpenTelemetry tracing.
type OpenTelemetryConfig struct {
	// Tracer to use for creating spans
	Tracer trace.Tracer

	// SpanNameFormatter allows customizing the span name
	SpanNameFormatter func(*http.Request) string

	// Whether to record one event per lifecycle timestamp and the phase
	// durations as attributes
	DetailedEvents bool

	// Propagator writes the span context into the outgoing request headers.
	// Defaults to the global propagator.
	Propagator propagation.TextMapPropagator
}

// DefaultSpanNameFormatter names spans "HTTP <method> <path>".
func DefaultSpanNameFormatter(req *http.Request) string {
	return fmt.Sprintf("HTTP %s %s", req.Method, req.URL.Path)
}

// WithOpenTelemetry returns an option that enables OpenTelemetry tracing.
// Each exchange gets one client span that starts when the request is handed
// to the transport and ends when the response body is done.
func WithOpenTelemetry(config OpenTelemetryConfig) Option {
	if config.SpanNameFormatter == nil {
		config.SpanNameFormatter = DefaultSpanNameFormatter
	}
	return WithReporter(&otelReporter{config: config})
}

// otelReporter records every exchange as a span.
type otelReporter struct {
	config OpenTelemetryConfig
}

// Begin implements Reporter.
func (r *otelReporter) Begin(ctx context.Context, req *http.Request, start time.Time) context.Context {
	if r.config.Tracer == nil {
		return ctx
	}
	ctx, _ = r.config.Tracer.Start(ctx, r.config.SpanNameFormatter(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("http.scheme", req.URL.Scheme),
			attribute.String("net.peer.name", req.URL.Host),
		),
	)
	return ctx
}

// Inject writes the exchange span into the headers of the outgoing request.
func (r *otelReporter) Inject(ctx context.Context, header http.Header) {
	if r.config.Tracer == nil {
		return
	}
	p := r.config.Propagator
	if p == nil {
		p = otel.GetTextMapPropagator()
	}
	p.Inject(ctx, propagation.HeaderCarrier(header))
}

// Report implements Reporter.
func (r *otelReporter) Report(ctx context.Context, o Outcome) {
	if r.config.Tracer == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	rec := o.Record

	if o.StatusCode != 0 {
		span.SetAttributes(
			attribute.Int("http.status_code", o.StatusCode),
			attribute.String("http.status_text", http.StatusText(o.StatusCode)),
		)
		code, desc := spanStatusFromHTTPStatus(o.StatusCode)
		span.SetStatus(code, desc)
	}

	if o.Err != nil {
		span.RecordError(o.Err, trace.WithTimestamp(rec.Error))
		span.SetStatus(codes.Error, o.Err.Error())
		span.SetAttributes(
			attribute.String("error.type", fmt.Sprintf("%T", o.Err)),
		)
	}

	if r.config.DetailedEvents {
		attrs := make([]attribute.KeyValue, 0, 8)
		rec.Phases.Each(func(name string, d time.Duration) {
			attrs = append(attrs, attribute.Float64("http."+name+"_ms", milliseconds(d)))
		})
		if rec.Phases.Total != nil {
			attrs = append(attrs, attribute.Float64("http.duration_ms", milliseconds(*rec.Phases.Total)))
		}
		span.SetAttributes(attrs...)

		for _, ev := range []struct {
			name string
			at   time.Time
		}{
			{"socket", rec.Socket},
			{"dns.done", rec.Lookup},
			{"connect.done", rec.Connect},
			{"tls.done", rec.SecureConnect},
			{"request.sent", rec.Upload},
			{"response", rec.Response},
			{"response.end", rec.End},
		} {
			if !ev.at.IsZero() {
				span.AddEvent(ev.name, trace.WithTimestamp(ev.at))
			}
		}
	}

	if finish := rec.Finish(); !finish.IsZero() {
		span.End(trace.WithTimestamp(finish))
	} else {
		span.End()
	}
}

// SimpleOpenTelemetryConfig creates a simple OpenTelemetry configuration.
func SimpleOpenTelemetryConfig(tracer trace.Tracer) OpenTelemetryConfig {
	return OpenTelemetryConfig{
		Tracer:            tracer,
		DetailedEvents:    true,
		SpanNameFormatter: DefaultSpanNameFormatter,
	}
}

// WithSimpleOpenTelemetry is a convenience option that sets up OpenTelemetry with sensible defaults.
func WithSimpleOpenTelemetry(tracer trace.Tracer) Option {
	return WithOpenTelemetry(SimpleOpenTelemetryConfig(tracer))
}

// ExtractSpanContext extracts the span context from an HTTP request.
func ExtractSpanContext(req *http.Request) trace.SpanContext {
	return trace.SpanContextFromContext(req.Context())
}

// InjectSpanContext writes sc into the W3C traceparent headers of req.
// This is useful for propagating trace context across service boundaries.
func InjectSpanContext(req *http.Request, sc trace.SpanContext) {
	ctx := trace.ContextWithSpanContext(req.Context(), sc)
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// spanStatusFromHTTPStatus converts an HTTP status code to an OpenTelemetry status.
func spanStatusFromHTTPStatus(statusCode int) (codes.Code, string) {
	if statusCode < 400 {
		return codes.Ok, ""
	}
	return codes.Error, http.StatusText(statusCode)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
