// Package logging provides structured logging configuration using log/slog.
//
// Loggers obtained through FromContext carry the chi request ID (for HTTP
// requests) and the cleaning run ID (for pipeline runs), so every entry of a
// run can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const ctxKeyRunID contextKey = "run_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter is Setup with an explicit destination. The CLI writes reports
// to stdout, so logs go to stderr by default.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ContextWithRunID tags ctx with a cleaning run ID.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// RunIDFromContext returns the run ID stored by ContextWithRunID.
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the default logger enriched with the request ID and
// run ID found in ctx.
//
// Usage:
//
//	logger := logging.FromContext(ctx)
//	logger.Info("column transformed", "column", name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	return logger
}

// WithFields returns a context logger with additional structured fields.
//
//	runLogger := logging.WithFields(ctx, "table", table)
//	runLogger.Info("extraction started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
