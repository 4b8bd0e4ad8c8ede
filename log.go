package main

import (
	"fmt"
	"io"
	"log/slog"
)

// hex8 formats as 0x1c in log records.
type hex8 byte

func (h hex8) String() string { return fmt.Sprintf("0x%02x", byte(h)) }

func newLogger(w io.Writer, debug, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debug {
		opts.Level = slog.LevelDebug
	}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
