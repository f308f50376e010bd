package main

import (
	"log/slog"
	"os"
)

// NewLogger returns a structured JSON logger on stderr. Stdout carries the
// detection documents.
func NewLogger(level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}
