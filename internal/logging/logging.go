// Package logging builds the zerolog loggers used across vizprops.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// New returns a logger writing to w. Format "console" gives human readable
// output; anything else is JSON. An unknown level falls back to info.
// The level is applied globally, so SetLevel takes effect on every logger
// built here.
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl := ParseLevel(level)
	zerolog.SetGlobalLevel(lvl)

	if strings.EqualFold(format, FormatConsole) {
		output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetLevel changes the global level.
func SetLevel(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
}

// ParseLevel is zerolog.ParseLevel with an info fallback for empty or
// unknown names.
func ParseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
