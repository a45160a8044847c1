// Package logger provides the shared zerolog logger for the scan pipeline.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init configures the default logger. Local environments get a human-readable
// console writer; everything else logs JSON to stdout. Unknown levels fall
// back to info. Safe to call more than once; only the first call wins.
func Init(environment, level string) {
	once.Do(func() {
		parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil || parsedLevel == zerolog.NoLevel {
			parsedLevel = zerolog.InfoLevel
		}

		var writer io.Writer = os.Stdout
		if strings.EqualFold(strings.TrimSpace(environment), "local") {
			writer = zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			}
		}

		defaultLogger = zerolog.New(writer).
			Level(parsedLevel).
			With().
			Timestamp().
			Str("service", "dains").
			Logger()
	})
}

// Get returns the initialized default logger.
func Get() zerolog.Logger {
	Init("", "info")
	return defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string) {
	Get().Info().Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string) {
	Get().Warn().Msg(msg)
}

// Error logs an error with the default logger.
func Error(msg string, err error) {
	Get().Error().Err(err).Msg(msg)
}
