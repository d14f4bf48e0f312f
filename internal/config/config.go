package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// SweepInterval is how often the staleness sweeper runs.
	// StaleAfter is how long a car may go without an update before eviction.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"2m"`
	StaleAfter    time.Duration `env:"STALE_AFTER" default:"5m"`

	MaxSockets     int `env:"MAX_SOCKETS" default:"10000"`
	SendBufferSize int `env:"SEND_BUFFER_SIZE" default:"16"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %v", cfg.SweepInterval)
	}
	if cfg.StaleAfter <= 0 {
		return fmt.Errorf("STALE_AFTER must be positive, got %v", cfg.StaleAfter)
	}
	if cfg.MaxSockets <= 0 {
		return fmt.Errorf("MAX_SOCKETS must be positive, got %d", cfg.MaxSockets)
	}
	if cfg.SendBufferSize <= 0 {
		return fmt.Errorf("SEND_BUFFER_SIZE must be positive, got %d", cfg.SendBufferSize)
	}
	return nil
}
