package di

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/savaki/stagectl/internal/config"
)

// ProvideLogger creates a new zerolog.Logger configured for the runtime environment.
// In Lambda (when AWS_LAMBDA_RUNTIME_API is set) and CI builds, it uses JSON format.
// In terminal/CLI, it uses console format with pretty printing.
func ProvideLogger(settings config.Settings) zerolog.Logger {
	level := zerolog.InfoLevel
	if v, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && v != zerolog.NoLevel {
		level = v
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || settings.CI() {
		return zerolog.New(os.Stdout).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
