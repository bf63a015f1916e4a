package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type GenerationConfig struct {
	ApiUrl string
	ApiKey string
	// MockMode skips the network entirely and synthesizes responses.
	MockMode bool
	// MaxCostPerCall fails a call fast when its estimate exceeds the
	// ceiling. Zero disables the guard.
	MaxCostPerCall float64
	// Timeout bounds the whole submit+poll cycle of one generation call.
	Timeout      time.Duration
	PollInterval time.Duration
	MaxRetries   int
	RetryBase    time.Duration
	RetryMax     time.Duration
}

func GetGenerationConfig() (*GenerationConfig, error) {
	cfg := &GenerationConfig{
		MockMode:     os.Getenv("GENERATION_MOCK_MODE") == "true",
		Timeout:      10 * time.Minute,
		PollInterval: 5 * time.Second,
		MaxRetries:   3,
		RetryBase:    time.Second,
		RetryMax:     10 * time.Second,
	}

	cfg.ApiUrl = os.Getenv("GENERATION_API_URL")
	cfg.ApiKey = os.Getenv("GENERATION_API_KEY")
	if !cfg.MockMode {
		if cfg.ApiUrl == "" {
			return nil, fmt.Errorf("GENERATION_API_URL must be set")
		}
		if cfg.ApiKey == "" {
			return nil, fmt.Errorf("GENERATION_API_KEY must be set")
		}
	}

	if raw := os.Getenv("GENERATION_TIMEOUT_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("GENERATION_TIMEOUT_SECONDS must be an integer: %w", err)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	if raw := os.Getenv("GENERATION_POLL_INTERVAL_SECONDS"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("GENERATION_POLL_INTERVAL_SECONDS must be an integer: %w", err)
		}
		cfg.PollInterval = time.Duration(seconds) * time.Second
	}

	if raw := os.Getenv("GENERATION_MAX_COST_PER_CALL"); raw != "" {
		maxCost, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("GENERATION_MAX_COST_PER_CALL must be a number: %w", err)
		}
		cfg.MaxCostPerCall = maxCost
	}

	return cfg, nil
}
