package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: console output in dev, JSON elsewhere.
func New(serviceName, env string) zerolog.Logger {
	var logger zerolog.Logger
	if env == "dev" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	return logger.With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}
