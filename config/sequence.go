package config

import (
	"fmt"
	"os"
	"strconv"
)

type SequenceConfig struct {
	MinScenes int
	MaxScenes int
}

func GetSequenceConfig() (*SequenceConfig, error) {
	cfg := &SequenceConfig{
		MinScenes: 2,
		MaxScenes: 12,
	}

	if raw := os.Getenv("SEQUENCE_MIN_SCENES"); raw != "" {
		minScenes, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("SEQUENCE_MIN_SCENES must be an integer: %w", err)
		}
		cfg.MinScenes = minScenes
	}

	if raw := os.Getenv("SEQUENCE_MAX_SCENES"); raw != "" {
		maxScenes, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("SEQUENCE_MAX_SCENES must be an integer: %w", err)
		}
		cfg.MaxScenes = maxScenes
	}

	if cfg.MinScenes < 1 || cfg.MaxScenes < cfg.MinScenes {
		return nil, fmt.Errorf("scene bounds are inconsistent: min %d, max %d", cfg.MinScenes, cfg.MaxScenes)
	}

	return cfg, nil
}
