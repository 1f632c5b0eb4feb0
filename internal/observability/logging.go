// Package observability carries build-scoped logging context through a context.Context.
package observability

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/packhooks/internal/logfields"
)

// LogContext holds structured logging context information.
type LogContext struct {
	BuildID string
	Mode    string
	Stage   string
	Entry   string
	Job     string
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithBuildID adds a build ID to the context.
func WithBuildID(ctx context.Context, buildID string) context.Context {
	lc := extractLogContext(ctx)
	lc.BuildID = buildID
	return context.WithValue(ctx, logContextKey, lc)
}

// WithMode records whether the run is a one-shot build or a watch.
func WithMode(ctx context.Context, mode string) context.Context {
	lc := extractLogContext(ctx)
	lc.Mode = mode
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

// WithEntry adds the entry point being built.
func WithEntry(ctx context.Context, entry string) context.Context {
	lc := extractLogContext(ctx)
	lc.Entry = entry
	return context.WithValue(ctx, logContextKey, lc)
}

// WithJob adds a job selector.
func WithJob(ctx context.Context, selector string) context.Context {
	lc := extractLogContext(ctx)
	lc.Job = selector
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	attrs := []slog.Attr{}

	if lc.BuildID != "" {
		attrs = append(attrs, logfields.BuildID(lc.BuildID))
	}
	if lc.Mode != "" {
		attrs = append(attrs, logfields.Mode(lc.Mode))
	}
	if lc.Stage != "" {
		attrs = append(attrs, logfields.Stage(lc.Stage))
	}
	if lc.Entry != "" {
		attrs = append(attrs, logfields.Entry(lc.Entry))
	}
	if lc.Job != "" {
		attrs = append(attrs, logfields.Selector(lc.Job))
	}
	return attrs
}

// InfoContext logs an info message with context information.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelInfo, msg, attrs)
}

// WarnContext logs a warning message with context information.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelWarn, msg, attrs)
}

// ErrorContext logs an error message with context information.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelError, msg, attrs)
}

// DebugContext logs a debug message with context information.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	logAttrs(ctx, slog.LevelDebug, msg, attrs)
}

func logAttrs(ctx context.Context, level slog.Level, msg string, attrs []slog.Attr) {
	all := append(getLogAttrs(ctx), attrs...)
	slog.LogAttrs(ctx, level, msg, all...)
}

// Logger returns base (or slog.Default) enriched with the context's fields,
// for components that take a *slog.Logger rather than a context.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	attrs := getLogAttrs(ctx)
	if len(attrs) == 0 {
		return base
	}
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return base.With(args...)
}

// GetContext returns the structured log context from the provided context.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

// HasContextValue checks if a specific context value is set.
func HasContextValue(ctx context.Context, field string) bool {
	lc := extractLogContext(ctx)
	switch field {
	case logfields.KeyBuildID:
		return lc.BuildID != ""
	case logfields.KeyMode:
		return lc.Mode != ""
	case logfields.KeyStage:
		return lc.Stage != ""
	case logfields.KeyEntry:
		return lc.Entry != ""
	case logfields.KeySelector:
		return lc.Job != ""
	default:
		return false
	}
}
