// Package processor holds the content-processing collaborators invoked
// after a file has been validated and stored. The ingestion pipeline
// treats them as opaque: they get a path and return a result string.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// SizeAck acknowledges a stored file by its on-disk size without
// interpreting its content. It is the default processor and doubles as
// the fallback when real processing is disabled.
type SizeAck struct {
	enabled bool
	logger  *slog.Logger
}

func NewSizeAck(enabled bool, logger *slog.Logger) *SizeAck {
	if logger == nil {
		logger = slog.Default()
	}
	return &SizeAck{enabled: enabled, logger: logger}
}

func (p *SizeAck) Process(ctx context.Context, path string) (string, error) {
	if !p.enabled {
		p.logger.Info("audio processing disabled, skipping")
		return "Audio file received but processing is disabled.", nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat stored file: %w", err)
	}

	p.logger.Info("processed audio file", "size", info.Size())
	return fmt.Sprintf("Successfully processed audio file (%d bytes)", info.Size()), nil
}
