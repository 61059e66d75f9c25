// Package plugin provides an extensible plugin system for Treasury.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import "context"

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, t interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Vesting lifecycle hooks
// ──────────────────────────────────────────────────

// OnConfigured is called once when the vesting schedule is configured.
type OnConfigured interface {
	Plugin
	OnConfigured(ctx context.Context, pool interface{}, allocs interface{}) error
}

// OnReleased is called when a beneficiary's allocation is paid out.
type OnReleased interface {
	Plugin
	OnReleased(ctx context.Context, beneficiary string, amount interface{}) error
}

// OnPaused is called when vesting releases are suspended.
type OnPaused interface {
	Plugin
	OnPaused(ctx context.Context) error
}

// OnUnpaused is called when vesting releases resume.
type OnUnpaused interface {
	Plugin
	OnUnpaused(ctx context.Context) error
}

// OnRevoked is called when a beneficiary's allocation is revoked.
type OnRevoked interface {
	Plugin
	OnRevoked(ctx context.Context, beneficiary string) error
}

// OnUnrevoked is called when a revocation is lifted.
type OnUnrevoked interface {
	Plugin
	OnUnrevoked(ctx context.Context, beneficiary string) error
}

// OnConservationBreach is called when the pool balance check inside a
// release finds the custodian cannot cover the outstanding allocations.
// The release has already been refused by the time this fires.
type OnConservationBreach interface {
	Plugin
	OnConservationBreach(ctx context.Context, held, outstanding interface{}) error
}

// ──────────────────────────────────────────────────
// Staking lifecycle hooks
// ──────────────────────────────────────────────────

// OnStaked is called when an account stakes funds (new position or top-up).
type OnStaked interface {
	Plugin
	OnStaked(ctx context.Context, account string, amount interface{}) error
}

// OnUnstaked is called when an account withdraws staked funds.
type OnUnstaked interface {
	Plugin
	OnUnstaked(ctx context.Context, account string, amount interface{}) error
}

// OnRewardsClaimed is called when an account collects accrued rewards.
type OnRewardsClaimed interface {
	Plugin
	OnRewardsClaimed(ctx context.Context, account string, amount interface{}) error
}

// OnRateUpdated is called when the reward rate changes.
type OnRateUpdated interface {
	Plugin
	OnRateUpdated(ctx context.Context, oldBps, newBps uint32) error
}

// OnRewardPoolFunded is called when the reward pool is topped up.
type OnRewardPoolFunded interface {
	Plugin
	OnRewardPoolFunded(ctx context.Context, amount interface{}) error
}
