package extension

import (
	"time"

	treasury "github.com/xraph/treasury"
	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/store"
)

// Option configures the Treasury Forge extension.
type Option func(*Extension)

// WithStore sets the store for the treasury engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCustodian sets the fund custodian for the treasury engine.
func WithCustodian(c custodian.Custodian) Option {
	return func(e *Extension) {
		e.custodian = c
	}
}

// WithTreasuryOption passes a treasury.Option through to the underlying engine.
func WithTreasuryOption(opt treasury.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a treasury plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, treasury.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithAccount sets the custodial account name.
func WithAccount(account string) Option {
	return func(e *Extension) { e.config.Account = account }
}

// WithCliffDuration sets the global vesting cliff.
func WithCliffDuration(d time.Duration) Option {
	return func(e *Extension) { e.config.CliffDuration = d }
}

// WithLockupDuration sets the staking lockup.
func WithLockupDuration(d time.Duration) Option {
	return func(e *Extension) { e.config.LockupDuration = d }
}

// WithRewardRate sets the initial annual reward rate in basis points.
func WithRewardRate(bps uint32) Option {
	return func(e *Extension) { e.config.RewardRateBps = bps }
}

// WithRateBand bounds runtime reward-rate updates.
func WithRateBand(minBps, maxBps uint32) Option {
	return func(e *Extension) {
		e.config.MinRateBps = minBps
		e.config.MaxRateBps = maxBps
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
