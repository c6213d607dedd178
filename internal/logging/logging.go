// Package logging provides the package-level slog.Logger used across
// cachekit's packages, following the same SetLogger/GetLogger pattern
// the teacher repo uses for its own single-package logger.
package logging

import (
	"log/slog"
)

var logger *slog.Logger

// SetLogger installs a custom logger to be used by every cachekit
// package. If never called, the default slog logger is used.
func SetLogger(l *slog.Logger) {
	logger = l
}

// Get returns the configured logger, defaulting to slog.Default().
func Get() *slog.Logger {
	if l := logger; l != nil {
		return l
	}
	return slog.Default()
}
