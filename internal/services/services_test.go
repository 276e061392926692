package services

import (
	"context"
	"io"

	"github.com/rs/zerolog"
)

// Helper to create a test context with logger
func testContext() context.Context {
	logger := zerolog.New(io.Discard)
	return logger.WithContext(context.Background())
}
