// Package logger builds the structured zerolog logger used across the service.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // Enable pretty console output
}

// New creates a logger writing to stdout.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing to out. Unknown levels fall back to info.
func NewWithWriter(cfg Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(out).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Component returns a sub-logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// SetGlobalLogger sets the package-level logger
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
