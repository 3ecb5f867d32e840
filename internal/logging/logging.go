// Package logging initializes the global zerolog logger, grounded in the
// teacher's cmd/cryptorun/main.go setup: RFC3339 timestamps, a
// console-formatted writer for interactive use, with a JSON-formatted
// writer available for production deployments (SPEC_FULL.md ambient
// stack addition: a `json` value for the config file's logging format, a
// mode the teacher's CLIs lack).
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. format is "console" (human-readable,
// the teacher's default) or "json" (structured, for log aggregation).
// level is any zerolog level name ("debug", "info", "warn", "error");
// unrecognized values fall back to "info".
func Init(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.ToLower(format) == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
}
