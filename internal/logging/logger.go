// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide structured logger instance.
var Logger = slog.Default()

// Config selects level, format and an optional rotating log file.
type Config struct {
	// Level is "debug", "info", "warn" or "error" (defaults to "info").
	Level string
	// Format is "json" or "text" (defaults to "text").
	Format string
	// File, when set, receives a copy of every record and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// InitLogger initializes the global logger. The returned closer releases the
// log file, if any.
func InitLogger(cfg Config) io.Closer {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	Logger = slog.New(NewHandler(out, cfg.Level, cfg.Format))
	slog.SetDefault(Logger)
	return closer
}

// NewHandler builds a handler writing to w.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSession returns a logger with session_id field.
func WithSession(sessionID string) *slog.Logger {
	return Logger.With("session_id", sessionID)
}

// WithDevice returns a logger with device field.
func WithDevice(device string) *slog.Logger {
	return Logger.With("device", device)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
