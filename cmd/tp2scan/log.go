package main

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with timestamp formatting that writes to w.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// newSlogLogger wraps a charmbracelet logger for the library packages,
// which log through log/slog.
func newSlogLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	return slog.New(newLogger(w, level))
}
