package logging

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger so packages depend on a single logging type.
type Logger struct {
	*slog.Logger
}

// New creates a JSON logger at the given level ("debug", "info", "warn", "error").
func New(level string) *Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	return &Logger{Logger: slog.New(handler)}
}

// Default returns an info-level logger.
func Default() *Logger {
	return New("info")
}

// With returns a logger carrying additional context attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}
