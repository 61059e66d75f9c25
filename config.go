package treasury

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the engine settings settable from the environment.
// Programmatic options take precedence when both are used.
type Config struct {
	Account        string        `env:"TREASURY_ACCOUNT" envDefault:"treasury"`
	CliffDuration  time.Duration `env:"TREASURY_CLIFF" envDefault:"2160h"`
	LockupDuration time.Duration `env:"TREASURY_LOCKUP" envDefault:"720h"`
	RewardRateBps  uint32        `env:"TREASURY_REWARD_RATE_BPS" envDefault:"1000"`
	MinRateBps     uint32        `env:"TREASURY_MIN_RATE_BPS" envDefault:"100"`
	MaxRateBps     uint32        `env:"TREASURY_MAX_RATE_BPS" envDefault:"5000"`
}

// ConfigFromEnv reads Config from TREASURY_* environment variables.
func ConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("treasury: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configs the engine cannot run with.
func (c *Config) Validate() error {
	if c.Account == "" {
		return ValidationError{Field: "Account", Message: "must not be empty"}
	}
	if c.CliffDuration < 0 {
		return ValidationError{Field: "CliffDuration", Message: "must not be negative"}
	}
	if c.LockupDuration < 0 {
		return ValidationError{Field: "LockupDuration", Message: "must not be negative"}
	}
	if c.MinRateBps > c.MaxRateBps {
		return ValidationError{Field: "MinRateBps", Message: "must not exceed MaxRateBps"}
	}
	if c.RewardRateBps < c.MinRateBps || c.RewardRateBps > c.MaxRateBps {
		return ValidationError{Field: "RewardRateBps", Message: "must lie within the rate band"}
	}

	return nil
}

// Options converts the config into engine options.
func (c *Config) Options() []Option {
	return []Option{
		WithAccount(c.Account),
		WithCliffDuration(c.CliffDuration),
		WithLockupDuration(c.LockupDuration),
		WithRewardRate(c.RewardRateBps),
		WithRateBand(c.MinRateBps, c.MaxRateBps),
	}
}
