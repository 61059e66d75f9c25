package extension

import "time"

// Config holds the Treasury extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.treasury" or "treasury" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Account is the custodial account the engine moves funds through
	// (default: "treasury").
	Account string `json:"account" mapstructure:"account" yaml:"account"`

	// CliffDuration is the global vesting cliff measured from configuration
	// time (default: 2160h, 90 days).
	CliffDuration time.Duration `json:"cliff_duration" mapstructure:"cliff_duration" yaml:"cliff_duration"`

	// LockupDuration is the staking lockup measured from each position's
	// original stake time (default: 720h, 30 days).
	LockupDuration time.Duration `json:"lockup_duration" mapstructure:"lockup_duration" yaml:"lockup_duration"`

	// RewardRateBps is the initial annual reward rate in basis points
	// (default: 1000, 10%).
	RewardRateBps uint32 `json:"reward_rate_bps" mapstructure:"reward_rate_bps" yaml:"reward_rate_bps"`

	// MinRateBps and MaxRateBps bound runtime rate updates
	// (defaults: 100 and 5000).
	MinRateBps uint32 `json:"min_rate_bps" mapstructure:"min_rate_bps" yaml:"min_rate_bps"`
	MaxRateBps uint32 `json:"max_rate_bps" mapstructure:"max_rate_bps" yaml:"max_rate_bps"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Account:        "treasury",
		CliffDuration:  90 * 24 * time.Hour,
		LockupDuration: 30 * 24 * time.Hour,
		RewardRateBps:  1000,
		MinRateBps:     100,
		MaxRateBps:     5000,
	}
}
