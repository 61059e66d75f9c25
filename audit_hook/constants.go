package audithook

// Action constants for audit events.
const (
	// Vesting actions
	ActionVestingConfigured  = "vesting.configured"
	ActionVestingPaused      = "vesting.paused"
	ActionVestingUnpaused    = "vesting.unpaused"
	ActionAllocationRevoked  = "allocation.revoked"
	ActionAllocationRestored = "allocation.restored"
	ActionAllocationReleased = "allocation.released"
	ActionConservationBreach = "conservation.breach"

	// Staking actions
	ActionStaked         = "stake.deposited"
	ActionUnstaked       = "stake.withdrawn"
	ActionRewardsClaimed = "rewards.claimed"
	ActionRateUpdated    = "rate.updated"
	ActionPoolFunded     = "reward_pool.funded"
)

// Resource constants for audit events.
const (
	ResourceVesting    = "vesting"
	ResourceAllocation = "allocation"
	ResourceStake      = "stake"
	ResourceRewards    = "rewards"
	ResourcePool       = "pool"
)

// Category constants for audit events.
const (
	CategoryVesting    = "vesting"
	CategoryStaking    = "staking"
	CategoryGovernance = "governance"
	CategorySafety     = "safety"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
