package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger. Loggers attached to a request
// context fall back to it through zerolog.DefaultContextLogger.
func Init(level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = New(os.Stdout, level, format)
	zerolog.SetGlobalLevel(log.Logger.GetLevel())
	zerolog.DefaultContextLogger = &log.Logger
}

// New builds a logger writing to out without touching package-level zerolog
// settings. Unknown levels fall back to info.
func New(out io.Writer, level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
