package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// Logger provides structured logging backed by log/slog. Console output is
// text for readability; an optional log file receives the same records as
// JSON via a slog-multi fanout.
type Logger struct {
	inner *slog.Logger
	level slog.Level
	file  *os.File
}

// NewLogger creates a new structured logger writing text to stderr.
func NewLogger(verbose bool) *Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return &Logger{
		inner: slog.New(handler),
		level: level,
	}
}

// WithFile adds JSON file output alongside the stderr text output.
func (l *Logger) WithFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	opts := &slog.HandlerOptions{Level: l.level}
	stderrHandler := slog.NewTextHandler(os.Stderr, opts)
	fileHandler := slog.NewJSONHandler(file, opts)

	l.file = file
	l.inner = slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
	return nil
}

// WithFields returns a new logger with additional key-value fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}

	return &Logger{
		inner: l.inner.With(args...),
		level: l.level,
		file:  l.file,
	}
}

// Close closes the log file opened via WithFile, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Slog returns the underlying *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.inner
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.inner.Debug(msg, keyvals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.inner.Info(msg, keyvals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.inner.Warn(msg, keyvals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.inner.Error(msg, keyvals...)
}
