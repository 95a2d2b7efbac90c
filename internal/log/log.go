// Package log provides structured logging for pryvit.
// It wraps zerolog with a process-wide logger and per-component children.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	ready  bool
	mu     sync.RWMutex
)

// Init initializes the global logger with the specified level and format.
// Valid levels: "debug", "info", "warn", "error". Format "json" writes one
// JSON object per line, anything else writes human-readable console output.
func Init(level, format string) {
	setup(os.Stdout, level, format)
}

// SetOutput replaces the global logger, writing to w. Intended for tests.
func SetOutput(w io.Writer, level string) {
	setup(w, level, "json")
}

func setup(w io.Writer, level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}

	mu.Lock()
	logger = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	ready = true
	mu.Unlock()
}

// L returns the global logger instance.
func L() zerolog.Logger {
	mu.RLock()
	l, ok := logger, ready
	mu.RUnlock()
	if !ok {
		setup(os.Stdout, "info", "console")
		return L()
	}
	return l
}

// With returns a child logger tagged with the given component name.
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
