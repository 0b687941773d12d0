// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// CorrelationID is the context key carrying the request correlation ID.
const CorrelationID LogContextKey = "correlation_id"

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationID).(string); ok {
		return id
	}
	return ""
}

// ServiceLogger provides structured logging for one service's calls and its
// calls to third-party collaborators.
type ServiceLogger struct {
	service string
	logger  *Logger
}

// NewServiceLogger creates a ServiceLogger for the named service.
func NewServiceLogger(service string) *ServiceLogger {
	return &ServiceLogger{
		service: service,
		logger:  GlobalLogger,
	}
}

// LogCall logs a service method call.
func (l *ServiceLogger) LogCall(ctx context.Context, method string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("service", l.service),
		slog.String("method", method),
		slog.String("type", "service_call"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "service call", attrs...)
}

// LogBestEffortFailure logs a failure that is tolerated and never surfaced to
// the caller.
func (l *ServiceLogger) LogBestEffortFailure(ctx context.Context, step string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("service", l.service),
		slog.String("step", step),
		slog.String("type", "best_effort"),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.WarnContext(ctx, "best-effort step failed", attrs...)
}

// LogCriticalFailure logs a failure that aborts the request.
func (l *ServiceLogger) LogCriticalFailure(ctx context.Context, step string, err error) {
	l.logger.ErrorContext(ctx, "critical step failed",
		slog.String("service", l.service),
		slog.String("step", step),
		slog.String("type", "critical"),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogRejected logs a request rejected by an upstream verifier or a limiter.
// Provider details stay in the log and are never returned to the client.
func (l *ServiceLogger) LogRejected(ctx context.Context, reason string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("service", l.service),
		slog.String("reason", reason),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "request rejected", attrs...)
}
