package treasury

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/treasury/accrual"
	"github.com/xraph/treasury/types"
)

// VestingInfo is a read-only view of one beneficiary's allocation against
// the pool state at query time.
type VestingInfo struct {
	Beneficiary  string       `json:"beneficiary"`
	Amount       types.Amount `json:"amount"`
	Released     bool         `json:"released"`
	Revoked      bool         `json:"revoked"`
	CliffEnd     time.Time    `json:"cliff_end"`
	CliffReached bool         `json:"cliff_reached"`
	Releasable   bool         `json:"releasable"`
}

// ContractStatus summarizes both ledgers for dashboards and health checks.
type ContractStatus struct {
	Configured        bool         `json:"configured"`
	Paused            bool         `json:"paused"`
	StartTime         *time.Time   `json:"start_time,omitempty"`
	CliffEnd          *time.Time   `json:"cliff_end,omitempty"`
	TotalAllocated    types.Amount `json:"total_allocated"`
	Outstanding       types.Amount `json:"outstanding"`
	Held              types.Amount `json:"held"`
	Beneficiaries     int          `json:"beneficiaries"`
	TotalStaked       types.Amount `json:"total_staked"`
	RewardPoolBalance types.Amount `json:"reward_pool_balance"`
	RewardRateBps     uint32       `json:"reward_rate_bps"`
	OpenPositions     int          `json:"open_positions"`
}

// StakeInfo is a read-only view of one account's position. EarnedRewards
// includes rewards accrued since the last settlement, so it is what a claim
// at query time would pay.
type StakeInfo struct {
	Account        string        `json:"account"`
	Amount         types.Amount  `json:"amount"`
	StakeTime      time.Time     `json:"stake_time"`
	LockupEnd      time.Time     `json:"lockup_end"`
	LockupElapsed  bool          `json:"lockup_elapsed"`
	EarnedRewards  types.Amount  `json:"earned_rewards"`
	RewardRateBps  uint32        `json:"reward_rate_bps"`
	LockupDuration time.Duration `json:"lockup_duration"`
}

// ReleasableAmount returns what Release would pay the beneficiary right
// now: the full allocation when every gate passes, zero when the pool is
// unconfigured, paused, before the cliff, or the allocation is revoked or
// spent. Unknown beneficiaries yield an error.
func (t *Treasury) ReleasableAmount(ctx context.Context, beneficiary string) (types.Amount, error) {
	t.vestingMu.RLock()
	defer t.vestingMu.RUnlock()

	pool, err := t.loadConfiguredPool(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return types.ZeroAmount, nil
	}
	if err != nil {
		return types.ZeroAmount, err
	}

	alloc, err := t.store.GetAllocation(ctx, beneficiary)
	if err != nil {
		return types.ZeroAmount, err
	}

	if pool.Paused || !pool.CliffReached(t.clock()) || !alloc.Releasable() {
		return types.ZeroAmount, nil
	}

	return alloc.Amount, nil
}

// GetVestingInfo returns the beneficiary's allocation view.
func (t *Treasury) GetVestingInfo(ctx context.Context, beneficiary string) (*VestingInfo, error) {
	t.vestingMu.RLock()
	defer t.vestingMu.RUnlock()

	pool, err := t.loadConfiguredPool(ctx)
	if err != nil {
		return nil, err
	}

	alloc, err := t.store.GetAllocation(ctx, beneficiary)
	if err != nil {
		return nil, err
	}

	cliffEnd, _ := pool.CliffEnd()
	reached := pool.CliffReached(t.clock())

	return &VestingInfo{
		Beneficiary:  alloc.Beneficiary,
		Amount:       alloc.Amount,
		Released:     alloc.Released,
		Revoked:      alloc.Revoked,
		CliffEnd:     cliffEnd,
		CliffReached: reached,
		Releasable:   !pool.Paused && reached && alloc.Releasable(),
	}, nil
}

// GetBeneficiaries returns every beneficiary in configuration order.
func (t *Treasury) GetBeneficiaries(ctx context.Context) ([]string, error) {
	t.vestingMu.RLock()
	defer t.vestingMu.RUnlock()

	if _, err := t.loadConfiguredPool(ctx); err != nil {
		return nil, err
	}

	allocs, err := t.store.ListAllocations(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(allocs))
	for i, a := range allocs {
		names[i] = a.Beneficiary
	}

	return names, nil
}

// GetContractStatus returns a combined snapshot of both ledgers. It works
// before configuration; vesting fields are zero-valued then.
func (t *Treasury) GetContractStatus(ctx context.Context) (*ContractStatus, error) {
	t.vestingMu.RLock()
	defer t.vestingMu.RUnlock()
	t.stakingMu.RLock()
	defer t.stakingMu.RUnlock()

	status := &ContractStatus{}

	pool, err := t.store.GetVestingPool(ctx)
	switch {
	case err == nil && pool.Configured:
		status.Configured = true
		status.Paused = pool.Paused
		status.StartTime = pool.StartTime
		if end, ok := pool.CliffEnd(); ok {
			status.CliffEnd = &end
		}
		status.TotalAllocated = pool.TotalAllocated

		outstanding, err := t.outstandingAllocations(ctx)
		if err != nil {
			return nil, err
		}
		status.Outstanding = outstanding

		allocs, err := t.store.ListAllocations(ctx)
		if err != nil {
			return nil, err
		}
		status.Beneficiaries = len(allocs)
	case err != nil && !IsNotFound(err):
		return nil, err
	}

	held, err := t.custodian.BalanceOf(ctx, t.account)
	if err == nil {
		status.Held = held
	}

	spool, err := t.store.GetStakingPool(ctx)
	if err == nil {
		status.TotalStaked = spool.TotalStaked
		status.RewardPoolBalance = spool.RewardPoolBalance
		status.RewardRateBps = spool.RewardRateBps

		positions, err := t.store.ListPositions(ctx)
		if err != nil {
			return nil, err
		}
		status.OpenPositions = len(positions)
	} else if !IsNotFound(err) {
		return nil, err
	}

	return status, nil
}

// GetStakeInfo returns the account's position view with rewards projected
// to now.
func (t *Treasury) GetStakeInfo(ctx context.Context, account string) (*StakeInfo, error) {
	t.stakingMu.RLock()
	defer t.stakingMu.RUnlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return nil, err
	}

	pos, err := t.store.GetPosition(ctx, account)
	if err != nil {
		return nil, err
	}

	now := t.clock()
	earned := pos.PendingRewards.Add(
		accrual.AccruedBetween(pos.Amount, pos.LastRewardRate, pos.LastRewardTime, now))

	return &StakeInfo{
		Account:        pos.Account,
		Amount:         pos.Amount,
		StakeTime:      pos.StakeTime,
		LockupEnd:      pos.StakeTime.Add(pool.LockupDuration),
		LockupElapsed:  pos.LockupElapsed(pool.LockupDuration, now),
		EarnedRewards:  earned,
		RewardRateBps:  pool.RewardRateBps,
		LockupDuration: pool.LockupDuration,
	}, nil
}

// GetAPR returns the current annual reward rate in basis points.
func (t *Treasury) GetAPR(ctx context.Context) (uint32, error) {
	t.stakingMu.RLock()
	defer t.stakingMu.RUnlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return 0, err
	}

	return pool.RewardRateBps, nil
}
