package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

const instrumentationName = "doc-qa"

// New builds the process logger: JSON on stdout with trace correlation, and,
// when enableOTel is set, a second sink exporting through the otelslog bridge.
// The result is also installed as slog's default.
func New(enableOTel bool) *slog.Logger {
	return newLogger(os.Stdout, parseLevel(os.Getenv("LOG_LEVEL")), enableOTel)
}

func newLogger(w io.Writer, level slog.Level, enableOTel bool) *slog.Logger {
	var handler slog.Handler = NewTraceContextHandler(
		slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}),
	)
	if enableOTel {
		handler = &MultiHandler{handlers: []slog.Handler{
			handler,
			otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(global.GetLoggerProvider())),
		}}
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	l.Info("logger_initialized", "otel_enabled", enableOTel)
	return l
}

// MultiHandler fans records out to every enabled handler.
type MultiHandler struct {
	handlers []slog.Handler
}

func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			_ = handler.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
