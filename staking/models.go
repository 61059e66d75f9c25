// Package staking defines the staking ledger data model: the shared pool
// parameters and per-account positions with lazily settled rewards.
package staking

import (
	"time"

	"github.com/xraph/treasury/types"
)

// PoolKey identifies the singleton staking pool record in a store.
const PoolKey = "staking"

// Pool holds the shared staking parameters and aggregates. RewardRateBps is
// mutable at runtime; every position settles its pending rewards at the old
// rate before a new rate takes effect.
type Pool struct {
	types.Entity
	RewardRateBps     uint32        `json:"reward_rate_bps"`
	LockupDuration    time.Duration `json:"lockup_duration"`
	TotalStaked       types.Amount  `json:"total_staked"`
	RewardPoolBalance types.Amount  `json:"reward_pool_balance"`
}

// Position is one account's stake. StakeTime is set when the position is
// opened and kept unchanged by top-ups, so the lockup clock never resets.
// PendingRewards holds rewards settled but not yet claimed. LastRewardRate
// is the rate snapshotted at the last settlement; accrual between
// settlements runs at this rate, not at whatever the pool rate is when the
// next settlement happens to occur.
type Position struct {
	types.Entity
	Account        string       `json:"account"`
	Amount         types.Amount `json:"amount"`
	StakeTime      time.Time    `json:"stake_time"`
	LastRewardTime time.Time    `json:"last_reward_time"`
	LastRewardRate uint32       `json:"last_reward_rate"`
	PendingRewards types.Amount `json:"pending_rewards"`
}

// LockupElapsed reports whether at has reached or passed the end of the
// position's lockup. The boundary instant itself counts as elapsed.
func (p *Position) LockupElapsed(lockup time.Duration, at time.Time) bool {
	return !at.Before(p.StakeTime.Add(lockup))
}
