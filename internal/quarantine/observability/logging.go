// Package observability provides structured logging setup for quarantine.
//
// Logs go to stderr: stdout belongs to the relayed container session and must
// carry nothing but session bytes.
package observability

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Setup configures the global slog logger according to the provided level and
// format strings (e.g. level="info", format="text").
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithRun returns a logger carrying a freshly generated run ID, so every line
// emitted during one invocation can be correlated.
func WithRun() *slog.Logger {
	return slog.With("run_id", uuid.New().String())
}
