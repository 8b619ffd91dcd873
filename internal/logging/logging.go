// Package logging builds the zerolog logger shared by every component of the
// relay server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log entry.
const ServiceName = "gochat-relay"

// Output formats accepted by New.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// ParseLevel maps a level name to a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

// New returns a logger writing to w (stdout when nil) with the service name
// and a timestamp on every entry. Unknown levels fall back to info and
// unknown formats to JSON; the returned error reports the fallback.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stdout
	}

	lvl, err := ParseLevel(level)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case FormatJSON, "":
	default:
		if err == nil {
			err = fmt.Errorf("invalid log format %q", format)
		}
	}

	logger := zerolog.New(w).With().Str("service", ServiceName).Timestamp().Logger().Level(lvl)
	return logger, err
}
