package httptimer

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestID returns the identifier a log reporter assigned to the request
// whose context is ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// LogReporter writes one log record per exchange.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a LogReporter writing to logger, or to slog.Default
// when logger is nil.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Begin implements Reporter. It assigns the exchange a request id.
func (l *LogReporter) Begin(ctx context.Context, req *http.Request, _ time.Time) context.Context {
	id := uuid.NewString()
	l.logger.DebugContext(ctx, "http request started",
		slog.String("request_id", id),
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)
	return context.WithValue(ctx, requestIDKey{}, id)
}

// Report implements Reporter. Failed exchanges are logged at warn level.
func (l *LogReporter) Report(ctx context.Context, o Outcome) {
	level := slog.LevelInfo
	attrs := []slog.Attr{
		slog.String("request_id", RequestID(ctx)),
		slog.String("method", o.Method),
		slog.String("url", o.URL),
		slog.Int("status", o.StatusCode),
		slog.Any("timings", o.Record),
	}
	if o.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", o.Err.Error()))
	}
	l.logger.LogAttrs(ctx, level, "http request completed", attrs...)
}
