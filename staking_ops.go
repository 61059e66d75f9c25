package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/treasury/accrual"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/types"
)

// ──────────────────────────────────────────────────
// Staking
// ──────────────────────────────────────────────────

// Stake deposits amount from account into the staking pool. A first stake
// opens a position and starts the lockup clock; later stakes top the
// position up without resetting the clock. Accrued rewards are settled
// into PendingRewards before the balance changes, so the top-up never
// earns retroactively.
func (t *Treasury) Stake(ctx context.Context, account string, amount types.Amount) error {
	if account == "" {
		return ErrInvalidInput
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return err
	}

	held, err := t.custodian.BalanceOf(ctx, account)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if held.LessThan(amount) {
		return fmt.Errorf("%w: account %q holds %s, staking %s",
			ErrInsufficientBalance, account, held, amount)
	}

	now := t.clock()
	pos, err := t.store.GetPosition(ctx, account)
	switch {
	case err == nil:
		t.settle(pos, pool.RewardRateBps, now)
		pos.Amount = pos.Amount.Add(amount)
		pos.Touch()
	case IsNotFound(err):
		pos = &staking.Position{
			Entity:         types.NewEntity(),
			Account:        account,
			Amount:         amount,
			StakeTime:      now,
			LastRewardTime: now,
			LastRewardRate: pool.RewardRateBps,
		}
	default:
		return err
	}

	if err := t.custodian.TransferFrom(ctx, account, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	if err := t.store.PutPosition(ctx, pos); err != nil {
		// Funds are in custody but the position was not recorded. Hand
		// them back so the caller can retry cleanly.
		if refundErr := t.custodian.Transfer(ctx, account, amount); refundErr != nil {
			t.logger.Error("refund of unrecorded stake failed",
				"account", account,
				"amount", amount.String(),
				"error", refundErr,
			)
		}
		return err
	}

	pool.TotalStaked = pool.TotalStaked.Add(amount)
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		return err
	}

	t.journal(ctx, receipt.OpStake, account, amount)
	t.plugins.EmitStaked(ctx, account, amount)

	t.logger.Info("staked",
		"account", account,
		"amount", amount.String(),
		"position", pos.Amount.String(),
	)

	return nil
}

// Unstake withdraws amount from account's position. The lockup is measured
// from the time the position was opened, and the boundary instant counts as
// elapsed. Rewards settle before the balance drops, so the withdrawn stake
// earns up to this moment. The position closes when both its balance and
// its pending rewards reach zero.
func (t *Treasury) Unstake(ctx context.Context, account string, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}

	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return err
	}

	pos, err := t.store.GetPosition(ctx, account)
	if err != nil {
		return err
	}

	now := t.clock()
	if pos.Amount.LessThan(amount) {
		return fmt.Errorf("%w: staked %s, requested %s",
			ErrInsufficientStaked, pos.Amount, amount)
	}
	if !pos.LockupElapsed(pool.LockupDuration, now) {
		return fmt.Errorf("%w: until %s",
			ErrLockupNotElapsed, pos.StakeTime.Add(pool.LockupDuration).Format(time.RFC3339))
	}

	t.settle(pos, pool.RewardRateBps, now)
	prevAmount := pos.Amount
	pos.Amount = pos.Amount.Sub(amount)
	pos.Touch()

	// Record the drop before instructing the custodian, as Release does: a
	// failure between the two sides must never leave the stake both on
	// record and paid out.
	if pos.Amount.IsZero() && pos.PendingRewards.IsZero() {
		err = t.store.DeletePosition(ctx, account)
	} else {
		err = t.store.PutPosition(ctx, pos)
	}
	if err != nil {
		return err
	}

	pool.TotalStaked = pool.TotalStaked.Sub(amount)
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		pos.Amount = prevAmount
		pos.Touch()
		if putErr := t.store.PutPosition(ctx, pos); putErr != nil {
			t.logger.Error("rollback of unstake record did not persist",
				"account", account,
				"error", putErr,
			)
		}
		return err
	}

	if err := t.custodian.Transfer(ctx, account, amount); err != nil {
		pos.Amount = prevAmount
		pos.Touch()
		pool.TotalStaked = pool.TotalStaked.Add(amount)
		pool.Touch()
		if putErr := t.store.PutPosition(ctx, pos); putErr != nil {
			t.logger.Error("rollback of failed unstake did not persist",
				"account", account,
				"error", putErr,
			)
		}
		if putErr := t.store.PutStakingPool(ctx, pool); putErr != nil {
			t.logger.Error("rollback of failed unstake did not persist",
				"account", account,
				"error", putErr,
			)
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	t.journal(ctx, receipt.OpUnstake, account, amount)
	t.plugins.EmitUnstaked(ctx, account, amount)

	t.logger.Info("unstaked",
		"account", account,
		"amount", amount.String(),
		"remaining", pos.Amount.String(),
	)

	return nil
}

// ClaimRewards pays out all rewards account has earned so far, settled up
// to now. Claims draw down the reward pool budget; a claim larger than the
// remaining budget is refused whole rather than partially paid.
func (t *Treasury) ClaimRewards(ctx context.Context, account string) (types.Amount, error) {
	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return types.ZeroAmount, err
	}

	pos, err := t.store.GetPosition(ctx, account)
	if err != nil {
		return types.ZeroAmount, err
	}

	t.settle(pos, pool.RewardRateBps, t.clock())
	earned := pos.PendingRewards
	if earned.IsZero() {
		return types.ZeroAmount, ErrNoRewards
	}
	if pool.RewardPoolBalance.LessThan(earned) {
		return types.ZeroAmount, fmt.Errorf("%w: budget %s, earned %s",
			ErrInsufficientRewards, pool.RewardPoolBalance, earned)
	}

	pos.PendingRewards = types.ZeroAmount
	pos.Touch()

	// Zero the entitlement on record before paying, as Release does, so a
	// failed or repeated claim can never draw the same rewards twice.
	if pos.Amount.IsZero() {
		err = t.store.DeletePosition(ctx, account)
	} else {
		err = t.store.PutPosition(ctx, pos)
	}
	if err != nil {
		return types.ZeroAmount, err
	}

	pool.RewardPoolBalance = pool.RewardPoolBalance.Sub(earned)
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		pos.PendingRewards = earned
		pos.Touch()
		if putErr := t.store.PutPosition(ctx, pos); putErr != nil {
			t.logger.Error("rollback of claim record did not persist",
				"account", account,
				"error", putErr,
			)
		}
		return types.ZeroAmount, err
	}

	if err := t.custodian.Transfer(ctx, account, earned); err != nil {
		pos.PendingRewards = earned
		pos.Touch()
		pool.RewardPoolBalance = pool.RewardPoolBalance.Add(earned)
		pool.Touch()
		if putErr := t.store.PutPosition(ctx, pos); putErr != nil {
			t.logger.Error("rollback of failed claim did not persist",
				"account", account,
				"error", putErr,
			)
		}
		if putErr := t.store.PutStakingPool(ctx, pool); putErr != nil {
			t.logger.Error("rollback of failed claim did not persist",
				"account", account,
				"error", putErr,
			)
		}
		return types.ZeroAmount, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	t.journal(ctx, receipt.OpClaim, account, earned)
	t.plugins.EmitRewardsClaimed(ctx, account, earned)

	t.logger.Info("rewards claimed",
		"account", account,
		"amount", earned.String(),
	)

	return earned, nil
}

// ──────────────────────────────────────────────────
// Pool administration
// ──────────────────────────────────────────────────

// UpdateRewardRate changes the annual reward rate. Every open position is
// settled at its snapshotted rate first and re-snapshotted to the new one,
// so accrual history is never rewritten.
func (t *Treasury) UpdateRewardRate(ctx context.Context, newBps uint32) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}
	if newBps < t.minRateBps || newBps > t.maxRateBps {
		return fmt.Errorf("%w: %d bps, allowed [%d, %d]",
			ErrRateOutOfRange, newBps, t.minRateBps, t.maxRateBps)
	}

	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return err
	}
	oldBps := pool.RewardRateBps
	if oldBps == newBps {
		return nil
	}

	now := t.clock()
	positions, err := t.store.ListPositions(ctx)
	if err != nil {
		return err
	}
	for _, pos := range positions {
		t.settle(pos, newBps, now)
		pos.Touch()
		if err := t.store.PutPosition(ctx, pos); err != nil {
			return err
		}
	}

	pool.RewardRateBps = newBps
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		return err
	}

	t.plugins.EmitRateUpdated(ctx, oldBps, newBps)
	t.logger.Info("reward rate updated",
		"old_bps", oldBps,
		"new_bps", newBps,
		"positions_settled", len(positions),
	)

	return nil
}

// AddToRewardPool pulls amount from the funder's account into custody and
// grows the claimable reward budget.
func (t *Treasury) AddToRewardPool(ctx context.Context, from string, amount types.Amount) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}

	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return err
	}

	if err := t.custodian.TransferFrom(ctx, from, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	pool.RewardPoolBalance = pool.RewardPoolBalance.Add(amount)
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		return err
	}

	t.journal(ctx, receipt.OpFund, from, amount)
	t.plugins.EmitRewardPoolFunded(ctx, amount)

	t.logger.Info("reward pool funded",
		"from", from,
		"amount", amount.String(),
		"budget", pool.RewardPoolBalance.String(),
	)

	return nil
}

// SetLockupDuration changes the lockup applied to unstakes. Existing
// positions keep their original StakeTime; only the duration measured from
// it changes.
func (t *Treasury) SetLockupDuration(ctx context.Context, d time.Duration) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}
	if d < 0 {
		return ErrInvalidInput
	}

	t.stakingMu.Lock()
	defer t.stakingMu.Unlock()

	pool, err := t.store.GetStakingPool(ctx)
	if err != nil {
		return err
	}

	pool.LockupDuration = d
	pool.Touch()
	if err := t.store.PutStakingPool(ctx, pool); err != nil {
		return err
	}

	t.logger.Info("lockup duration updated", "lockup", d)

	return nil
}

// EmergencyWithdraw moves amount from custody to an external account,
// bypassing schedules. Admin only. The operation is journaled so auditors
// can always account for it.
func (t *Treasury) EmergencyWithdraw(ctx context.Context, to string, amount types.Amount) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}
	if to == "" {
		return ErrInvalidInput
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	if err := t.custodian.Transfer(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	t.journal(ctx, receipt.OpEmergencyWithdraw, to, amount)
	t.logger.Warn("emergency withdrawal",
		"to", to,
		"amount", amount.String(),
	)

	return nil
}

// settle folds rewards accrued since LastRewardTime into PendingRewards at
// the position's snapshotted rate, advances the settlement clock, and
// re-snapshots nextBps as the rate in force from here on. Zero-balance
// positions advance the clock without earning.
func (t *Treasury) settle(pos *staking.Position, nextBps uint32, now time.Time) {
	earned := accrual.AccruedBetween(pos.Amount, pos.LastRewardRate, pos.LastRewardTime, now)
	if !earned.IsZero() {
		pos.PendingRewards = pos.PendingRewards.Add(earned)
	}
	if now.After(pos.LastRewardTime) {
		pos.LastRewardTime = now
	}
	pos.LastRewardRate = nextBps
}
