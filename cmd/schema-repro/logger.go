package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventlite-io/eventlite/store"
)

// verboseLogger adapts zerolog to the store's Logger port for -verbose runs.
// The store hands over alternating key/value pairs, which zerolog consumes
// as fields.
type verboseLogger struct {
	logger zerolog.Logger
}

func newVerboseLogger(out io.Writer, noColor bool) *verboseLogger {
	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}

	return &verboseLogger{
		logger: zerolog.New(console).With().Timestamp().Logger(),
	}
}

func (l *verboseLogger) Debug(msg string, args ...any) {
	l.logger.Debug().Fields(args).Msg(msg)
}

func (l *verboseLogger) Info(msg string, args ...any) {
	l.logger.Info().Fields(args).Msg(msg)
}

func (l *verboseLogger) Warn(msg string, args ...any) {
	l.logger.Warn().Fields(args).Msg(msg)
}

func (l *verboseLogger) Error(msg string, args ...any) {
	l.logger.Error().Fields(args).Msg(msg)
}

// Ensure verboseLogger implements the store's Logger port.
var _ store.Logger = (*verboseLogger)(nil)
