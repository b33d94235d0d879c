package logger

import (
	"context"
	"log/slog"
)

type ContextKey string

// Attribute keys follow OpenTelemetry naming with a docqa. prefix.
const (
	DocumentIDKey ContextKey = "docqa.document.id"
	StageKey      ContextKey = "docqa.stage"
)

// ContextLogger decorates a base logger with the request's document context.
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

func NewContextLogger(base *slog.Logger, serviceName string) *ContextLogger {
	if base == nil {
		base = slog.Default()
	}
	return &ContextLogger{logger: base, serviceName: serviceName}
}

// WithContext returns a logger carrying the service name plus whatever
// document id and stage the context holds.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any
	if id, ok := ctx.Value(DocumentIDKey).(string); ok && id != "" {
		fields = append(fields, string(DocumentIDKey), id)
	}
	if stage, ok := ctx.Value(StageKey).(string); ok && stage != "" {
		fields = append(fields, string(StageKey), stage)
	}
	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return context.WithValue(ctx, DocumentIDKey, documentID)
}

func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, StageKey, stage)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
