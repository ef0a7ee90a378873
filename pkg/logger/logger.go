package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	userIDKey        contextKey = "user_id"
	loggerKey        contextKey = "logger"
)

// New creates a structured JSON logger tagged with the given service name.
func New(serviceName, level string) *slog.Logger {
	return NewWithWriter(serviceName, level, os.Stdout)
}

// NewWithWriter is like New but writes to the given writer. Used by tests.
func NewWithWriter(serviceName, level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})

	return slog.New(contextHandler{Handler: handler}).With(slog.String("service", serviceName))
}

// contextHandler appends context-derived ids to every record at log time.
// Reading them at Handle time rather than when the logger is built means a
// user id set by the auth layer shows up even on loggers created earlier in
// the middleware chain.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := CorrelationIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if id := UserIDFromContext(ctx); id != "" {
		r.AddAttrs(slog.String("user_id", id))
	}
	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// WithCorrelationID returns a new context with the correlation ID set.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext extracts the correlation ID from the context.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID records the user ID for logging. Inside an HTTP request the id
// lands in the slot installed by the logging middleware, so log lines written
// upstream of the auth layer carry it too; elsewhere it is stored as a plain
// context value.
func WithUserID(ctx context.Context, id string) context.Context {
	if box, ok := ctx.Value(userIDKey).(*userIDBox); ok {
		box.set(id)
		return ctx
	}
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext extracts the user ID stored by this package from context.
func UserIDFromContext(ctx context.Context) string {
	switch v := ctx.Value(userIDKey).(type) {
	case *userIDBox:
		return v.get()
	case string:
		return v
	}
	return ""
}

// WithUserIDSlot installs an empty user-id slot that a later WithUserID call
// fills in place. The request completion line is logged above the auth layer;
// the slot is how the id still reaches it.
func WithUserIDSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, userIDKey, &userIDBox{})
}

type userIDBox struct {
	mu sync.Mutex
	id string
}

func (b *userIDBox) set(id string) {
	b.mu.Lock()
	b.id = id
	b.mu.Unlock()
}

func (b *userIDBox) get() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

// NewContext returns a new context carrying the given request-scoped logger.
func NewContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the request-scoped logger stored in context, or
// slog.Default() when none is stored.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
