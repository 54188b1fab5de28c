package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New builds a logger writing to stderr with the given level and format,
// and installs it as the slog default.
func New(level string, useJSON bool) *slog.Logger {
	l := NewWithWriter(os.Stderr, level, useJSON)
	slog.SetDefault(l)
	return l
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, level string, useJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: true,
	}

	var handler slog.Handler
	if useJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a level name to slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
