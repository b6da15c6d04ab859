package jsonload

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with jsonload-specific context.
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
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogLoadDocument logs a single-document load.
func (l *Logger) LogLoadDocument(ctx context.Context, path string, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load document failed",
			"path", path,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "document loaded",
			"path", path,
			"size", size,
		)
	}
}

// LogLoadCorpus logs a corpus load.
func (l *Logger) LogLoadCorpus(ctx context.Context, path string, records, skipped, bytes int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "load corpus failed",
			"path", path,
			"error", err,
		)
	case records == 0:
		l.WarnContext(ctx, "corpus has no records",
			"path", path,
			"skipped", skipped,
		)
	default:
		l.InfoContext(ctx, "corpus loaded",
			"path", path,
			"records", records,
			"skipped", skipped,
			"bytes", bytes,
		)
	}
}

// LogRelease logs the release of a loaded buffer.
func (l *Logger) LogRelease(ctx context.Context, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "release failed",
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "buffer released",
			"bytes", bytes,
		)
	}
}
