// Package observability provides structured logging, Prometheus metrics,
// and OpenTelemetry tracing for the query pipeline.
package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// Logger wraps slog with request correlation and API key redaction.
//
// Well-known IDs (request, session, user) are picked up from the context
// on every call, so pipeline stages don't thread them manually.
type Logger struct {
	logger  *slog.Logger
	redacts []*regexp.Regexp
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string

	// Format is "json" (production) or "text" (development).
	Format string

	// Output defaults to os.Stdout.
	Output io.Writer
}

type contextKey string

const (
	// RequestIDKey is the context key for per-query request IDs.
	RequestIDKey contextKey = "request_id"

	// SessionIDKey is the context key for conversation session IDs.
	SessionIDKey contextKey = "session_id"

	// UserIDKey is the context key for user IDs.
	UserIDKey contextKey = "user_id"
)

// redactPatterns cover provider API keys that could leak through error
// strings from the generation backends.
var redactPatterns = []string{
	`sk-ant-[a-zA-Z0-9_-]{16,}`,
	`sk-[a-zA-Z0-9]{20,}`,
	`(?i)(api[_-]?key|token|secret)[\s:=]+["']?([^\s"']{8,})["']?`,
}

// NewLogger creates a structured logger. Empty config fields fall back
// to info level, JSON format, stdout.
func NewLogger(cfg LogConfig) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}

	redacts := make([]*regexp.Regexp, 0, len(redactPatterns))
	for _, p := range redactPatterns {
		if re, err := regexp.Compile(p); err == nil {
			redacts = append(redacts, re)
		}
	}

	return &Logger{logger: slog.New(handler), redacts: redacts}
}

// NewNopLogger returns a logger that discards everything. Tests use it.
func NewNopLogger() *Logger {
	return NewLogger(LogConfig{Level: "error", Output: io.Discard})
}

// With returns a logger with the given attributes added to all records.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...), redacts: l.redacts}
}

// Debug logs at debug level with optional key-value pairs.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at info level with optional key-value pairs.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level with optional key-value pairs.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level with optional key-value pairs.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	attrs := make([]any, 0, len(args)+6)
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		attrs = append(attrs, "request_id", id)
	}
	if id, ok := ctx.Value(SessionIDKey).(string); ok && id != "" {
		attrs = append(attrs, "session_id", id)
	}
	if id, ok := ctx.Value(UserIDKey).(string); ok && id != "" {
		attrs = append(attrs, "user_id", id)
	}
	for _, arg := range args {
		attrs = append(attrs, l.redactValue(arg))
	}
	l.logger.Log(ctx, level, l.redactString(msg), attrs...)
}

func (l *Logger) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return l.redactString(val)
	case error:
		return l.redactString(val.Error())
	default:
		return v
	}
}

func (l *Logger) redactString(s string) string {
	for _, re := range l.redacts {
		s = re.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// WithRequestID stores a request ID in the context for log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithSessionID stores a session ID in the context for log correlation.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithUserID stores a user ID in the context for log correlation.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// RequestID retrieves the request ID from the context, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
