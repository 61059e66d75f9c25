package treasury_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/accrual"
	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/store/memory"
	"github.com/xraph/treasury/types"
)

const lockup = 30 * 24 * time.Hour

func newStakingEngine(t *testing.T, opts ...treasury.Option) (*treasury.Treasury, *custodian.Memory, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	cust.Credit("alice", types.NewAmount(1_000_000))
	cust.Credit("bob", types.NewAmount(1_000_000))
	cust.Credit("funder", types.NewAmount(1_000_000))

	opts = append([]treasury.Option{
		treasury.WithClock(clock.Now),
		treasury.WithLockupDuration(lockup),
		treasury.WithRewardRate(1000), // 10% APR
	}, opts...)

	eng := treasury.New(memory.New(), cust, opts...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, cust, clock
}

func fund(t *testing.T, eng *treasury.Treasury, amount uint64) {
	t.Helper()

	if err := eng.AddToRewardPool(context.Background(), "funder", types.NewAmount(amount)); err != nil {
		t.Fatalf("AddToRewardPool failed: %v", err)
	}
}

func TestStakeMovesFundsIntoCustody(t *testing.T) {
	ctx := context.Background()
	eng, cust, _ := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(100_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(900_000)) {
		t.Errorf("alice balance = %s, want 900000", got)
	}
	got, _ = cust.BalanceOf(ctx, "treasury")
	if !got.Equal(types.NewAmount(100_000)) {
		t.Errorf("treasury balance = %s, want 100000", got)
	}

	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.Amount.Equal(types.NewAmount(100_000)) {
		t.Errorf("position = %s, want 100000", info.Amount)
	}
}

func TestStakeValidation(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.ZeroAmount); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero stake = %v, want ErrZeroAmount", err)
	}
	if err := eng.Stake(ctx, "", types.NewAmount(1)); !errors.Is(err, treasury.ErrInvalidInput) {
		t.Errorf("empty account = %v, want ErrInvalidInput", err)
	}
	if err := eng.Stake(ctx, "pauper", types.NewAmount(1)); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("unfunded account = %v, want ErrInsufficientBalance", err)
	}
	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_001)); !errors.Is(err, treasury.ErrInsufficientBalance) {
		t.Errorf("over-balance stake = %v, want ErrInsufficientBalance", err)
	}
}

func TestAccrualLinearInTime(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	// 1,000,000 at 10% APR for exactly one year earns 100,000.
	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	clock.Advance(accrual.SecondsPerYear * time.Second / 2)
	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.EarnedRewards.Equal(types.NewAmount(50_000)) {
		t.Errorf("half year earned = %s, want 50000", info.EarnedRewards)
	}

	clock.Advance(accrual.SecondsPerYear * time.Second / 2)
	info, err = eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.EarnedRewards.Equal(types.NewAmount(100_000)) {
		t.Errorf("full year earned = %s, want 100000", info.EarnedRewards)
	}
}

func TestTopUpSettlesAndKeepsStakeTime(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(100_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	opened := clock.Now()

	// Half a year later, top up. The new funds must not earn for the
	// first half, and the lockup clock must not reset.
	clock.Advance(accrual.SecondsPerYear * time.Second / 2)
	if err := eng.Stake(ctx, "alice", types.NewAmount(100_000)); err != nil {
		t.Fatalf("top-up Stake failed: %v", err)
	}

	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.StakeTime.Equal(opened) {
		t.Errorf("StakeTime = %v, want original %v", info.StakeTime, opened)
	}
	// 100k at 10% for half a year = 5000.
	if !info.EarnedRewards.Equal(types.NewAmount(5_000)) {
		t.Errorf("earned after top-up = %s, want 5000", info.EarnedRewards)
	}

	// Another half year on 200k earns 10000 more.
	clock.Advance(accrual.SecondsPerYear * time.Second / 2)
	info, err = eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.EarnedRewards.Equal(types.NewAmount(15_000)) {
		t.Errorf("earned after full year = %s, want 15000", info.EarnedRewards)
	}
}

func TestRateChangeSettlesAtOldRate(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	// Half a year at 10%, then half a year at 20%: 50000 + 100000.
	clock.Advance(accrual.SecondsPerYear * time.Second / 2)
	if err := eng.UpdateRewardRate(ctx, 2000); err != nil {
		t.Fatalf("UpdateRewardRate failed: %v", err)
	}
	clock.Advance(accrual.SecondsPerYear * time.Second / 2)

	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.EarnedRewards.Equal(types.NewAmount(150_000)) {
		t.Errorf("earned across rate change = %s, want 150000", info.EarnedRewards)
	}

	if apr, _ := eng.GetAPR(ctx); apr != 2000 {
		t.Errorf("GetAPR = %d, want 2000", apr)
	}
}

func TestUpdateRewardRateBand(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newStakingEngine(t)

	if err := eng.UpdateRewardRate(ctx, 99); !errors.Is(err, treasury.ErrRateOutOfRange) {
		t.Errorf("below band = %v, want ErrRateOutOfRange", err)
	}
	if err := eng.UpdateRewardRate(ctx, 5001); !errors.Is(err, treasury.ErrRateOutOfRange) {
		t.Errorf("above band = %v, want ErrRateOutOfRange", err)
	}
	if err := eng.UpdateRewardRate(ctx, 100); err != nil {
		t.Errorf("band floor rejected: %v", err)
	}
	if err := eng.UpdateRewardRate(ctx, 5000); err != nil {
		t.Errorf("band ceiling rejected: %v", err)
	}
}

func TestUnstakeLockupBoundary(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(10_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	clock.Advance(lockup - time.Second)
	err := eng.Unstake(ctx, "alice", types.NewAmount(10_000))
	if !errors.Is(err, treasury.ErrLockupNotElapsed) {
		t.Fatalf("one second early: Unstake = %v, want ErrLockupNotElapsed", err)
	}

	clock.Advance(time.Second)
	if err := eng.Unstake(ctx, "alice", types.NewAmount(10_000)); err != nil {
		t.Fatalf("at boundary: Unstake failed: %v", err)
	}
}

func TestUnstakeValidation(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Unstake(ctx, "alice", types.ZeroAmount); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero unstake = %v, want ErrZeroAmount", err)
	}
	if err := eng.Unstake(ctx, "alice", types.NewAmount(1)); !errors.Is(err, treasury.ErrNoPosition) {
		t.Errorf("no position = %v, want ErrNoPosition", err)
	}

	if err := eng.Stake(ctx, "alice", types.NewAmount(100)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	// Before the lockup elapses an over-unstake still reports the
	// amount problem, not the lockup.
	if err := eng.Unstake(ctx, "alice", types.NewAmount(101)); !errors.Is(err, treasury.ErrInsufficientStaked) {
		t.Errorf("over-unstake during lockup = %v, want ErrInsufficientStaked", err)
	}

	clock.Advance(lockup)
	if err := eng.Unstake(ctx, "alice", types.NewAmount(101)); !errors.Is(err, treasury.ErrInsufficientStaked) {
		t.Errorf("over-unstake = %v, want ErrInsufficientStaked", err)
	}
}

func TestZeroBalanceDoesNotAccrue(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)
	fund(t, eng, 1_000_000)

	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	clock.Advance(lockup + accrual.SecondsPerYear*time.Second)
	if err := eng.Unstake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Unstake failed: %v", err)
	}

	// Rewards stop with the balance at zero; time passing changes nothing.
	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	earnedAtUnstake := info.EarnedRewards

	clock.Advance(accrual.SecondsPerYear * time.Second)
	info, err = eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.EarnedRewards.Equal(earnedAtUnstake) {
		t.Errorf("earned grew on zero balance: %s -> %s", earnedAtUnstake, info.EarnedRewards)
	}

	// The settled rewards remain claimable.
	claimed, err := eng.ClaimRewards(ctx, "alice")
	if err != nil {
		t.Fatalf("ClaimRewards failed: %v", err)
	}
	if !claimed.Equal(earnedAtUnstake) {
		t.Errorf("claimed %s, want %s", claimed, earnedAtUnstake)
	}

	// Claiming the last rewards closes the position.
	if _, err := eng.GetStakeInfo(ctx, "alice"); !errors.Is(err, treasury.ErrNoPosition) {
		t.Errorf("expected ErrNoPosition after close, got %v", err)
	}
}

// failOnceStore wraps a working store and rejects a set number of
// position writes, to exercise the payout paths around persistence
// failures.
type failOnceStore struct {
	*memory.Store
	failPuts int
}

func (f *failOnceStore) PutPosition(ctx context.Context, p *staking.Position) error {
	if f.failPuts > 0 {
		f.failPuts--
		return errors.New("position write rejected")
	}
	return f.Store.PutPosition(ctx, p)
}

func TestClaimPaysAtMostOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	cust.Credit("alice", types.NewAmount(1_000_000))
	cust.Credit("funder", types.NewAmount(1_000_000))
	st := &failOnceStore{Store: memory.New()}

	eng := treasury.New(st, cust,
		treasury.WithClock(clock.Now),
		treasury.WithLockupDuration(lockup),
		treasury.WithRewardRate(1000),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	clock.Advance(accrual.SecondsPerYear * time.Second)
	fund(t, eng, 100_000)

	// A claim that cannot record its own payout must not pay.
	st.failPuts = 1
	if _, err := eng.ClaimRewards(ctx, "alice"); err == nil {
		t.Fatal("expected ClaimRewards to fail on the rejected write")
	}
	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.ZeroAmount) {
		t.Fatalf("failed claim paid out: alice holds %s", got)
	}

	// The retry pays the full entitlement exactly once.
	claimed, err := eng.ClaimRewards(ctx, "alice")
	if err != nil {
		t.Fatalf("retry ClaimRewards failed: %v", err)
	}
	if !claimed.Equal(types.NewAmount(100_000)) {
		t.Errorf("claimed %s, want 100000", claimed)
	}
	got, _ = cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(100_000)) {
		t.Errorf("alice balance = %s, want 100000", got)
	}
	if _, err := eng.ClaimRewards(ctx, "alice"); !errors.Is(err, treasury.ErrNoRewards) {
		t.Errorf("re-claim = %v, want ErrNoRewards", err)
	}
}

func TestUnstakeRollsBackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := &failingCustodian{Memory: custodian.NewMemory("treasury")}
	cust.Credit("alice", types.NewAmount(10_000))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithLockupDuration(lockup),
		treasury.WithRewardRate(1000),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Stake(ctx, "alice", types.NewAmount(10_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	clock.Advance(lockup)

	cust.failTransfer = true
	if err := eng.Unstake(ctx, "alice", types.NewAmount(10_000)); !errors.Is(err, treasury.ErrTransferFailed) {
		t.Fatalf("Unstake with failing custodian = %v, want ErrTransferFailed", err)
	}

	// Nothing was paid and the position survived intact.
	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.ZeroAmount) {
		t.Fatalf("failed unstake paid out: alice holds %s", got)
	}
	info, err := eng.GetStakeInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStakeInfo failed: %v", err)
	}
	if !info.Amount.Equal(types.NewAmount(10_000)) {
		t.Errorf("position after rollback = %s, want 10000", info.Amount)
	}
	status, err := eng.GetContractStatus(ctx)
	if err != nil {
		t.Fatalf("GetContractStatus failed: %v", err)
	}
	if !status.TotalStaked.Equal(types.NewAmount(10_000)) {
		t.Errorf("total staked after rollback = %s, want 10000", status.TotalStaked)
	}

	// Once the custodian recovers the same unstake pays exactly once.
	cust.failTransfer = false
	if err := eng.Unstake(ctx, "alice", types.NewAmount(10_000)); err != nil {
		t.Fatalf("retry Unstake failed: %v", err)
	}
	got, _ = cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(10_000)) {
		t.Errorf("alice balance = %s, want 10000", got)
	}
}

func TestClaimRequiresRewardBudget(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	clock.Advance(accrual.SecondsPerYear * time.Second)

	// Earned 100000 but the pool budget is empty.
	if _, err := eng.ClaimRewards(ctx, "alice"); !errors.Is(err, treasury.ErrInsufficientRewards) {
		t.Fatalf("unfunded claim = %v, want ErrInsufficientRewards", err)
	}

	fund(t, eng, 100_000)
	claimed, err := eng.ClaimRewards(ctx, "alice")
	if err != nil {
		t.Fatalf("funded claim failed: %v", err)
	}
	if !claimed.Equal(types.NewAmount(100_000)) {
		t.Errorf("claimed %s, want 100000", claimed)
	}

	// Nothing left to claim right away.
	if _, err := eng.ClaimRewards(ctx, "alice"); !errors.Is(err, treasury.ErrNoRewards) {
		t.Errorf("immediate re-claim = %v, want ErrNoRewards", err)
	}
}

func TestAddToRewardPool(t *testing.T) {
	ctx := context.Background()
	eng, cust, _ := newStakingEngine(t)

	if err := eng.AddToRewardPool(ctx, "funder", types.ZeroAmount); !errors.Is(err, treasury.ErrZeroAmount) {
		t.Errorf("zero fund = %v, want ErrZeroAmount", err)
	}

	fund(t, eng, 50_000)

	got, _ := cust.BalanceOf(ctx, "funder")
	if !got.Equal(types.NewAmount(950_000)) {
		t.Errorf("funder balance = %s, want 950000", got)
	}

	status, err := eng.GetContractStatus(ctx)
	if err != nil {
		t.Fatalf("GetContractStatus failed: %v", err)
	}
	if !status.RewardPoolBalance.Equal(types.NewAmount(50_000)) {
		t.Errorf("reward budget = %s, want 50000", status.RewardPoolBalance)
	}

	receipts, err := eng.Receipts(ctx, receipt.ListOpts{Op: receipt.OpFund})
	if err != nil {
		t.Fatalf("Receipts failed: %v", err)
	}
	if len(receipts) != 1 {
		t.Errorf("fund receipts = %d, want 1", len(receipts))
	}
}

func TestSetLockupDurationAppliesToExistingPositions(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newStakingEngine(t)

	if err := eng.Stake(ctx, "alice", types.NewAmount(100)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}

	// Shorten the lockup; the existing position unlocks sooner because
	// its StakeTime is unchanged.
	if err := eng.SetLockupDuration(ctx, time.Hour); err != nil {
		t.Fatalf("SetLockupDuration failed: %v", err)
	}

	clock.Advance(time.Hour)
	if err := eng.Unstake(ctx, "alice", types.NewAmount(100)); err != nil {
		t.Errorf("Unstake after shortened lockup failed: %v", err)
	}
}

func TestStakingIndependentOfVestingPause(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	cust.Credit("treasury", types.NewAmount(1_000))
	cust.Credit("alice", types.NewAmount(1_000))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithLockupDuration(lockup),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Configure(ctx, []string{"bob"}, []types.Amount{types.NewAmount(1_000)}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if err := eng.Pause(ctx); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	// Vesting is paused; staking keeps working.
	if err := eng.Stake(ctx, "alice", types.NewAmount(500)); err != nil {
		t.Errorf("Stake while vesting paused failed: %v", err)
	}
}

func TestGetContractStatusSnapshot(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newStakingEngine(t)

	// Works before vesting configuration.
	status, err := eng.GetContractStatus(ctx)
	if err != nil {
		t.Fatalf("GetContractStatus failed: %v", err)
	}
	if status.Configured {
		t.Error("expected unconfigured status")
	}
	if status.RewardRateBps != 1000 {
		t.Errorf("rate = %d, want 1000", status.RewardRateBps)
	}

	if err := eng.Stake(ctx, "alice", types.NewAmount(250)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	status, err = eng.GetContractStatus(ctx)
	if err != nil {
		t.Fatalf("GetContractStatus failed: %v", err)
	}
	if !status.TotalStaked.Equal(types.NewAmount(250)) {
		t.Errorf("total staked = %s, want 250", status.TotalStaked)
	}
	if status.OpenPositions != 1 {
		t.Errorf("open positions = %d, want 1", status.OpenPositions)
	}
}
