// Package logger builds the structured slog logger every process in
// this module uses.
package logger

import (
	"log/slog"
	"os"
)

// New creates a JSON-handler logger tagged with serviceName, with level
// controlled by the LOG_LEVEL environment variable (default INFO).
func New(serviceName string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv(os.Getenv("LOG_LEVEL"))}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With(slog.String("service", serviceName))
}

func levelFromEnv(raw string) slog.Level {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
