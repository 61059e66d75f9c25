package treasury

import (
	"context"
	"fmt"

	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/types"
	"github.com/xraph/treasury/vesting"
)

// ──────────────────────────────────────────────────
// Vesting schedule management
// ──────────────────────────────────────────────────

// Configure installs the vesting schedule: one fixed allocation per
// beneficiary, all subject to the same cliff starting now. Configuration is
// single-shot; a second call fails with ErrAlreadyConfigured.
//
// The whole call is atomic: any validation failure leaves no schedule
// behind. The custodian may be funded after configuration; coverage is
// enforced by Release's conservation check, not here.
func (t *Treasury) Configure(ctx context.Context, beneficiaries []string, amounts []types.Amount) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	if pool, err := t.store.GetVestingPool(ctx); err == nil && pool.Configured {
		return ErrAlreadyConfigured
	} else if err != nil && !IsNotFound(err) {
		return err
	}

	if len(beneficiaries) == 0 {
		return ErrEmptyInput
	}
	if len(beneficiaries) != len(amounts) {
		return fmt.Errorf("%w: %d beneficiaries, %d amounts",
			ErrLengthMismatch, len(beneficiaries), len(amounts))
	}

	now := t.clock()
	seen := make(map[string]struct{}, len(beneficiaries))
	allocs := make([]*vesting.Allocation, 0, len(beneficiaries))
	total := types.ZeroAmount

	for i, b := range beneficiaries {
		if b == "" {
			return fmt.Errorf("%w: entry %d", ErrInvalidBeneficiary, i)
		}
		if amounts[i].IsZero() {
			return fmt.Errorf("%w: beneficiary %q", ErrZeroAllocation, b)
		}
		if _, dup := seen[b]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateBeneficiary, b)
		}
		seen[b] = struct{}{}

		total = total.Add(amounts[i])
		allocs = append(allocs, &vesting.Allocation{
			Entity:      types.NewEntity(),
			Beneficiary: b,
			Amount:      amounts[i],
			Position:    i,
		})
	}

	pool := &vesting.Pool{
		Entity:         types.NewEntity(),
		CliffDuration:  t.cliffDuration,
		StartTime:      &now,
		TotalAllocated: total,
		Configured:     true,
	}

	if err := t.store.PutAllocations(ctx, allocs); err != nil {
		return err
	}
	if err := t.store.PutVestingPool(ctx, pool); err != nil {
		return err
	}

	t.journal(ctx, receipt.OpConfigure, "", total)
	t.plugins.EmitConfigured(ctx, pool, allocs)

	t.logger.Info("vesting configured",
		"beneficiaries", len(allocs),
		"total", total.String(),
		"cliff_end", now.Add(t.cliffDuration),
	)

	return nil
}

// Pause suspends releases. Revoke, unrevoke, and all staking operations
// remain available while paused.
func (t *Treasury) Pause(ctx context.Context) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	pool, err := t.loadConfiguredPool(ctx)
	if err != nil {
		return err
	}
	if pool.Paused {
		return ErrAlreadyPaused
	}

	pool.Paused = true
	pool.Touch()
	if err := t.store.PutVestingPool(ctx, pool); err != nil {
		return err
	}

	t.plugins.EmitPaused(ctx)
	t.logger.Info("vesting paused")

	return nil
}

// Unpause resumes releases.
func (t *Treasury) Unpause(ctx context.Context) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	pool, err := t.loadConfiguredPool(ctx)
	if err != nil {
		return err
	}
	if !pool.Paused {
		return ErrNotPaused
	}

	pool.Paused = false
	pool.Touch()
	if err := t.store.PutVestingPool(ctx, pool); err != nil {
		return err
	}

	t.plugins.EmitUnpaused(ctx)
	t.logger.Info("vesting unpaused")

	return nil
}

// Revoke blocks a beneficiary's allocation from release. The allocation
// amount stays on record and Unrevoke restores it in full. Revoking a fully
// released allocation is permitted and has no payout effect; the release
// gate fires first regardless.
func (t *Treasury) Revoke(ctx context.Context, beneficiary string) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	if _, err := t.loadConfiguredPool(ctx); err != nil {
		return err
	}

	alloc, err := t.store.GetAllocation(ctx, beneficiary)
	if err != nil {
		return err
	}
	if alloc.Revoked {
		return ErrAlreadyRevoked
	}

	alloc.Revoked = true
	alloc.Touch()
	if err := t.store.PutAllocation(ctx, alloc); err != nil {
		return err
	}

	t.journal(ctx, receipt.OpRevoke, beneficiary, types.ZeroAmount)
	t.plugins.EmitRevoked(ctx, beneficiary)
	t.logger.Info("allocation revoked", "beneficiary", beneficiary)

	return nil
}

// Unrevoke lifts a revocation, restoring the allocation untouched.
func (t *Treasury) Unrevoke(ctx context.Context, beneficiary string) error {
	if !t.isAdmin(ctx) {
		return ErrUnauthorized
	}

	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	if _, err := t.loadConfiguredPool(ctx); err != nil {
		return err
	}

	alloc, err := t.store.GetAllocation(ctx, beneficiary)
	if err != nil {
		return err
	}
	if !alloc.Revoked {
		return ErrNotRevoked
	}

	alloc.Revoked = false
	alloc.Touch()
	if err := t.store.PutAllocation(ctx, alloc); err != nil {
		return err
	}

	t.journal(ctx, receipt.OpUnrevoke, beneficiary, types.ZeroAmount)
	t.plugins.EmitUnrevoked(ctx, beneficiary)
	t.logger.Info("allocation unrevoked", "beneficiary", beneficiary)

	return nil
}

// ──────────────────────────────────────────────────
// Release
// ──────────────────────────────────────────────────

// Release pays out a beneficiary's full allocation. Each allocation
// releases exactly once; the gates are checked in a fixed order so callers
// always see the same error for the same state:
//
//	not configured, paused, revoked, cliff not reached,
//	no allocation, already released.
//
// Before paying out, Release verifies the custodian still holds enough to
// cover every outstanding allocation, not just this one. A shortfall
// refuses the release and reports the breach rather than paying some
// beneficiaries out of others' entitlements.
func (t *Treasury) Release(ctx context.Context, beneficiary string) (types.Amount, error) {
	t.vestingMu.Lock()
	defer t.vestingMu.Unlock()

	pool, err := t.loadConfiguredPool(ctx)
	if err != nil {
		return types.ZeroAmount, err
	}
	if pool.Paused {
		return types.ZeroAmount, ErrPaused
	}

	alloc, allocErr := t.store.GetAllocation(ctx, beneficiary)
	if allocErr != nil && !IsNotFound(allocErr) {
		return types.ZeroAmount, allocErr
	}
	if allocErr == nil && alloc.Revoked {
		return types.ZeroAmount, ErrRevoked
	}
	if !pool.CliffReached(t.clock()) {
		return types.ZeroAmount, ErrCliffNotReached
	}
	if allocErr != nil {
		return types.ZeroAmount, allocErr
	}
	if alloc.Released {
		return types.ZeroAmount, ErrNothingToRelease
	}

	// Conservation check: the custodian must cover every allocation not
	// yet released or revoked, including this one.
	outstanding, err := t.outstandingAllocations(ctx)
	if err != nil {
		return types.ZeroAmount, err
	}
	held, err := t.custodian.BalanceOf(ctx, t.account)
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if held.LessThan(outstanding) {
		t.plugins.EmitConservationBreach(ctx, held, outstanding)
		t.logger.Error("conservation breach detected",
			"held", held.String(),
			"outstanding", outstanding.String(),
		)
		return types.ZeroAmount, fmt.Errorf("%w: held %s, outstanding %s",
			ErrConservation, held, outstanding)
	}
	// Second gate: the held balance must also cover this one payout.
	if held.LessThan(alloc.Amount) {
		return types.ZeroAmount, fmt.Errorf("%w: held %s, payout %s",
			ErrConservation, held, alloc.Amount)
	}

	// Mark released before instructing the custodian, and roll the mark
	// back if the transfer fails. The mutex is held throughout, so no
	// other caller observes the intermediate state.
	alloc.Released = true
	alloc.Touch()
	if err := t.store.PutAllocation(ctx, alloc); err != nil {
		return types.ZeroAmount, err
	}

	if err := t.custodian.Transfer(ctx, beneficiary, alloc.Amount); err != nil {
		alloc.Released = false
		alloc.Touch()
		if putErr := t.store.PutAllocation(ctx, alloc); putErr != nil {
			// The custodian holds the funds but our record says released.
			// Operators must reconcile from the log.
			t.logger.Error("rollback of failed release did not persist",
				"beneficiary", beneficiary,
				"error", putErr,
			)
		}
		return types.ZeroAmount, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	t.journal(ctx, receipt.OpRelease, beneficiary, alloc.Amount)
	t.plugins.EmitReleased(ctx, beneficiary, alloc.Amount)

	t.logger.Info("allocation released",
		"beneficiary", beneficiary,
		"amount", alloc.Amount.String(),
	)

	return alloc.Amount, nil
}

// loadConfiguredPool fetches the vesting pool, mapping absence to
// ErrNotConfigured.
func (t *Treasury) loadConfiguredPool(ctx context.Context) (*vesting.Pool, error) {
	pool, err := t.store.GetVestingPool(ctx)
	if IsNotFound(err) {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, err
	}
	if !pool.Configured {
		return nil, ErrNotConfigured
	}

	return pool, nil
}

// outstandingAllocations sums every allocation still owed: not released,
// not revoked.
func (t *Treasury) outstandingAllocations(ctx context.Context) (types.Amount, error) {
	allocs, err := t.store.ListAllocations(ctx)
	if err != nil {
		return types.ZeroAmount, err
	}

	total := types.ZeroAmount
	for _, a := range allocs {
		if a.Releasable() {
			total = total.Add(a.Amount)
		}
	}

	return total, nil
}
