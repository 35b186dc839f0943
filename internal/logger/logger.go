package logger

import (
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger on stdout at the given level.
func NewLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}
