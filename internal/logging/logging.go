// Package logging configures the process-wide zerolog logger from
// explicit configuration resolved once at startup.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvVar selects the log level: ERROR, WARN, INFO, DEBUG or TRACE
// (case-insensitive). Unset or unrecognized values mean INFO.
const EnvVar = "HLDUP_LOG"

// ParseLevel maps a level name to a zerolog level, falling back to INFO.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return zerolog.ErrorLevel
	case "WARN":
		return zerolog.WarnLevel
	case "INFO":
		return zerolog.InfoLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup installs the global logger, reading the level from EnvVar.
// Output goes to stderr so the interactive prompt owns stdout.
func Setup() {
	zerolog.SetGlobalLevel(ParseLevel(os.Getenv(EnvVar)))

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
	}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
