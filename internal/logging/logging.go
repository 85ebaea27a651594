// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up log.Logger at the given level. Logs go to stderr so that
// command output on stdout stays machine-readable. A terminal gets the
// console writer; anything else gets JSON lines.
func Init(level string, verbose bool) {
	InitWriter(os.Stderr, level, verbose, isatty.IsTerminal(os.Stderr.Fd()))
}

// InitWriter is Init with an explicit destination.
func InitWriter(w io.Writer, level string, verbose, console bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl := ParseLevel(level)
	if verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "notedraft").
		Logger()
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Get returns the global logger.
func Get() *zerolog.Logger {
	return &log.Logger
}
