// Package sysutil holds process-level helpers for the composition root:
// logger setup and build version lookup.
package sysutil

import (
	"io"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SetLogLevel sets the global zerolog level. Unknown values mean info.
func SetLogLevel(lvl string) {
	zerolog.SetGlobalLevel(ParseLevel(lvl))
}

// ParseLevel maps debug|info|warn(ing)|error|fatal|panic, case-insensitively,
// to a zerolog level; anything else is info.
func ParseLevel(lvl string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger builds the process logger writing to w: JSON lines, or a
// human-readable console format when pretty is set.
func NewLogger(w io.Writer, pretty bool, service string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).With().Timestamp().Str("service", service).Logger()
}

// Version returns v when set (e.g. via -ldflags), else the main module
// version recorded in the build info, else "dev".
func Version(v string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}
