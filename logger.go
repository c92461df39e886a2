package splatforge

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pipeline-specific field helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger over the given handler. A nil handler selects
// an info-level text handler on stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger printing human-readable text at the given
// level.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards everything.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithFile tags log records with the file being processed.
func (l *Logger) WithFile(path string) *Logger {
	return &Logger{Logger: l.Logger.With("file", path)}
}

// WithRows tags log records with a row count.
func (l *Logger) WithRows(n int) *Logger {
	return &Logger{Logger: l.Logger.With("rows", n)}
}
