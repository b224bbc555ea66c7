// Package logging provides the structured logger used throughout
// chronicle-threads for lifecycle events, stall dumps, and pauser
// statistics. It wraps zerolog the way the teacher pack's Streamy
// repository wraps it (internal/logger/logger.go): a thin New(Options)
// constructor instead of a global logger, so tests can capture output and
// multiple EventGroup instances can carry distinct, named loggers.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures a Logger at construction time.
type Options struct {
	// Level is a zerolog level name ("debug", "info", "warn", "error").
	// Empty defaults to "info".
	Level string
	// HumanReadable switches to zerolog's console writer, useful for
	// examples and local development; production use leaves this false
	// for machine-parseable JSON lines.
	HumanReadable bool
	// Writer defaults to os.Stderr when nil, matching the convention that
	// logs are diagnostic output, not program output.
	Writer io.Writer
}

// New builds a zerolog.Logger from Options, falling back to sane defaults
// on an unrecognized level rather than failing construction — a
// misconfigured log level must never prevent an EventGroup from starting.
func New(opts Options) zerolog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = w
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = w
		console.TimeFormat = time.RFC3339
		out = console
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, used as the zero-value
// default for components constructed without an explicit logger.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
