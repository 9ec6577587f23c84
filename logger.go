package knn

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with classifier-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{Logger: l.Logger.With("k", k)}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{Logger: l.Logger.With("dimension", dim)}
}

// WithMethod adds the distance method to the logger.
func (l *Logger) WithMethod(method string) *Logger {
	return &Logger{Logger: l.Logger.With("method", method)}
}

// LogLearn logs a learn call. added is false for a policy rejection.
func (l *Logger) LogLearn(ctx context.Context, category, rows int, added bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "learn failed",
			"category", category,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "learn completed",
		"category", category,
		"rows", rows,
		"added", added,
	)
}

// LogInfer logs an inference.
func (l *Logger) LogInfer(ctx context.Context, winner, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "infer failed",
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "infer completed",
		"winner", winner,
		"rows", rows,
	)
}

// LogEviction logs a fixed-capacity eviction.
func (l *Logger) LogEviction(ctx context.Context, row int, recency int64) {
	l.DebugContext(ctx, "evicted least recent prototype",
		"row", row,
		"recency", recency,
	)
}

// LogRemove logs a bulk removal.
func (l *Logger) LogRemove(ctx context.Context, removed, rows int) {
	l.DebugContext(ctx, "prototypes removed",
		"removed", removed,
		"rows", rows,
	)
}

// LogSVD logs the outcome of finalizing the projection.
func (l *Logger) LogSVD(ctx context.Context, requested, dims int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "svd failed",
			"requested_dims", requested,
			"error", err,
		)
	case requested > dims:
		l.WarnContext(ctx, "svd dimensions clamped to available directions",
			"requested_dims", requested,
			"dims", dims,
		)
	case dims == 0:
		l.InfoContext(ctx, "svd kept no dimensions, projection skipped")
	default:
		l.InfoContext(ctx, "svd finalized",
			"dims", dims,
		)
	}
}

// LogSnapshot logs a snapshot save or load. op names the operation.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot "+op+" completed",
		"name", name,
	)
}
