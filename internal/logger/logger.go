// Package logger owns the process-wide zerolog logger. Components receive it
// through injection; only startup code and the kafka emitter use the global.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logger zerolog.Logger

// Init configures the global logger. Level strings follow zerolog's naming;
// anything unparseable falls back to info.
func Init(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	logger = log.With().Str("service", "safe-monitor").Caller().Logger()
}

func GetLogger() *zerolog.Logger {
	return &logger
}
