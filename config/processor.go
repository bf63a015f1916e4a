package config

import (
	"fmt"
	"os"
	"strconv"
)

const defaultMaxDownloadBytes = 512 << 20

type ProcessorConfig struct {
	TempDir string
	// MaxDownloadBytes bounds disk use per downloaded input.
	MaxDownloadBytes int64
}

func GetProcessorConfig() (*ProcessorConfig, error) {
	cfg := &ProcessorConfig{
		TempDir:          os.TempDir(),
		MaxDownloadBytes: defaultMaxDownloadBytes,
	}

	if dir := os.Getenv("PROCESSOR_TEMP_DIR"); dir != "" {
		cfg.TempDir = dir
	}

	if raw := os.Getenv("PROCESSOR_MAX_DOWNLOAD_BYTES"); raw != "" {
		maxBytes, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("PROCESSOR_MAX_DOWNLOAD_BYTES must be an integer: %w", err)
		}
		cfg.MaxDownloadBytes = maxBytes
	}

	return cfg, nil
}
