// Package sysutil holds process-level helpers for the entrypoint and the
// config loader.
package sysutil

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogging points the global zerolog logger at w with timestamps and
// sets the global level. pretty switches to a human-readable console
// writer for local runs.
func SetupLogging(level string, pretty bool, w io.Writer) {
	zerolog.SetGlobalLevel(Level(level))
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// Level maps a LOG_LEVEL value to a zerolog level. "warning" is accepted
// for warn. Blank or unknown values give info.
func Level(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

var boolWords = map[string]bool{
	"1": true, "true": true, "yes": true, "y": true, "on": true,
	"0": false, "false": false, "no": false, "n": false, "off": false,
}

// Bool reads the usual on/off spellings, ignoring case and surrounding
// space. ok is false for anything else, including "".
func Bool(v string) (b, ok bool) {
	b, ok = boolWords[strings.ToLower(strings.TrimSpace(v))]
	return b, ok
}

// FirstNonEmpty returns the first value that is not blank, unchanged.
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
