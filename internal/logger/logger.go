package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/interrogation-engine/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return SetupWriter(cfg, os.Stdout)
}

// SetupWriter is Setup with a destination other than stdout. The console
// UI owns the terminal, so it logs to a file instead.
func SetupWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(w, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)

	// Set as default logger
	slog.SetDefault(logger)

	return logger
}

// WithSession adds the session id to logger context
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With("session_id", sessionID)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
