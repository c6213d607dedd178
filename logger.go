package cachekit

import (
	"log/slog"

	"github.com/htcacheio/cachekit/internal/logging"
)

// SetLogger sets a custom slog.Logger instance to be used by cachekit
// and all of its sub-packages (backend/*, policy, streamstore,
// wrapper/*). If not set, the default slog logger is used.
func SetLogger(l *slog.Logger) {
	logging.SetLogger(l)
}

// GetLogger returns the configured logger or the default slog logger.
func GetLogger() *slog.Logger {
	return logging.Get()
}
