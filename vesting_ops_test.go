package treasury_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/store/memory"
	"github.com/xraph/treasury/types"
)

// fakeClock is a manually driven time source shared by a test and the
// engine under test.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingCustodian wraps a working custodian and fails outbound transfers
// on demand.
type failingCustodian struct {
	*custodian.Memory
	failTransfer bool
}

func (f *failingCustodian) Transfer(ctx context.Context, to string, amount types.Amount) error {
	if f.failTransfer {
		return errors.New("custodian offline")
	}
	return f.Memory.Transfer(ctx, to, amount)
}

const cliff = 90 * 24 * time.Hour

func newVestingEngine(t *testing.T) (*treasury.Treasury, *custodian.Memory, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	cust.Credit("treasury", types.NewAmount(10_000))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithCliffDuration(cliff),
	)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	return eng, cust, clock
}

func configure(t *testing.T, eng *treasury.Treasury) {
	t.Helper()

	err := eng.Configure(context.Background(),
		[]string{"alice", "bob"},
		[]types.Amount{types.NewAmount(1000), types.NewAmount(500)},
	)
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
}

func TestConfigureValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		beneficiaries []string
		amounts       []types.Amount
		wantErr       error
	}{
		{
			name:    "empty input",
			wantErr: treasury.ErrEmptyInput,
		},
		{
			name:          "length mismatch",
			beneficiaries: []string{"alice", "bob"},
			amounts:       []types.Amount{types.NewAmount(1)},
			wantErr:       treasury.ErrLengthMismatch,
		},
		{
			name:          "empty beneficiary",
			beneficiaries: []string{"alice", ""},
			amounts:       []types.Amount{types.NewAmount(1), types.NewAmount(2)},
			wantErr:       treasury.ErrInvalidBeneficiary,
		},
		{
			name:          "zero allocation",
			beneficiaries: []string{"alice"},
			amounts:       []types.Amount{types.ZeroAmount},
			wantErr:       treasury.ErrZeroAllocation,
		},
		{
			name:          "duplicate beneficiary",
			beneficiaries: []string{"alice", "alice"},
			amounts:       []types.Amount{types.NewAmount(1), types.NewAmount(2)},
			wantErr:       treasury.ErrDuplicateBeneficiary,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, _ := newVestingEngine(t)

			err := eng.Configure(ctx, tt.beneficiaries, tt.amounts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Configure() = %v, want %v", err, tt.wantErr)
			}

			// A rejected configuration must leave no schedule behind.
			if _, err := eng.GetBeneficiaries(ctx); !errors.Is(err, treasury.ErrNotConfigured) {
				t.Errorf("expected ErrNotConfigured after rejected configure, got %v", err)
			}
		})
	}
}

func TestConfigureIsSingleShot(t *testing.T) {
	eng, _, _ := newVestingEngine(t)
	configure(t, eng)

	err := eng.Configure(context.Background(),
		[]string{"carol"}, []types.Amount{types.NewAmount(1)})
	if !errors.Is(err, treasury.ErrAlreadyConfigured) {
		t.Errorf("second Configure = %v, want ErrAlreadyConfigured", err)
	}
}

func TestConfigureBeforeFunding(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithCliffDuration(cliff),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	// Allocations are configured first; the custodian is funded later.
	configure(t, eng)
	clock.Advance(cliff)

	// Until funding arrives, the conservation check holds releases back.
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrConservation) {
		t.Fatalf("unfunded Release = %v, want ErrConservation", err)
	}

	cust.Credit("treasury", types.NewAmount(1500))
	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Fatalf("funded Release failed: %v", err)
	}
}

func TestReleaseGateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("not configured comes first", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrNotConfigured) {
			t.Errorf("Release = %v, want ErrNotConfigured", err)
		}
	})

	t.Run("paused before cliff", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		configure(t, eng)
		if err := eng.Pause(ctx); err != nil {
			t.Fatalf("Pause failed: %v", err)
		}
		// Still before the cliff, but pause is reported first.
		if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrPaused) {
			t.Errorf("Release = %v, want ErrPaused", err)
		}
	})

	t.Run("revoked before cliff", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		configure(t, eng)
		if err := eng.Revoke(ctx, "alice"); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		// Revocation is reported even though the cliff has not passed.
		if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrRevoked) {
			t.Errorf("Release = %v, want ErrRevoked", err)
		}
	})

	t.Run("cliff before unknown beneficiary", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		configure(t, eng)
		if _, err := eng.Release(ctx, "nobody"); !errors.Is(err, treasury.ErrCliffNotReached) {
			t.Errorf("Release = %v, want ErrCliffNotReached", err)
		}
	})

	t.Run("unknown beneficiary after cliff", func(t *testing.T) {
		eng, _, clock := newVestingEngine(t)
		configure(t, eng)
		clock.Advance(cliff)
		if _, err := eng.Release(ctx, "nobody"); !errors.Is(err, treasury.ErrNoAllocation) {
			t.Errorf("Release = %v, want ErrNoAllocation", err)
		}
	})

	t.Run("revoked before released", func(t *testing.T) {
		eng, _, clock := newVestingEngine(t)
		configure(t, eng)
		clock.Advance(cliff)
		if err := eng.Revoke(ctx, "alice"); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrRevoked) {
			t.Errorf("Release = %v, want ErrRevoked", err)
		}
	})
}

func TestCliffBoundaryInclusive(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newVestingEngine(t)
	configure(t, eng)

	clock.Advance(cliff - time.Second)
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrCliffNotReached) {
		t.Fatalf("one second early: Release = %v, want ErrCliffNotReached", err)
	}

	clock.Advance(time.Second)
	amount, err := eng.Release(ctx, "alice")
	if err != nil {
		t.Fatalf("at boundary: Release failed: %v", err)
	}
	if !amount.Equal(types.NewAmount(1000)) {
		t.Errorf("released %s, want 1000", amount)
	}
}

func TestReleasableAmount(t *testing.T) {
	ctx := context.Background()

	t.Run("zero before configuration", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		got, err := eng.ReleasableAmount(ctx, "alice")
		if err != nil {
			t.Fatalf("ReleasableAmount failed: %v", err)
		}
		if !got.IsZero() {
			t.Errorf("unconfigured releasable = %s, want 0", got)
		}
	})

	t.Run("follows the release gates", func(t *testing.T) {
		eng, _, clock := newVestingEngine(t)
		configure(t, eng)

		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.IsZero() {
			t.Errorf("before cliff releasable = %s, want 0", got)
		}

		clock.Advance(cliff)
		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.Equal(types.NewAmount(1000)) {
			t.Errorf("after cliff releasable = %s, want 1000", got)
		}

		if err := eng.Pause(ctx); err != nil {
			t.Fatalf("Pause failed: %v", err)
		}
		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.IsZero() {
			t.Errorf("paused releasable = %s, want 0", got)
		}
		if err := eng.Unpause(ctx); err != nil {
			t.Fatalf("Unpause failed: %v", err)
		}

		if err := eng.Revoke(ctx, "alice"); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.IsZero() {
			t.Errorf("revoked releasable = %s, want 0", got)
		}
		if err := eng.Unrevoke(ctx, "alice"); err != nil {
			t.Fatalf("Unrevoke failed: %v", err)
		}
		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.Equal(types.NewAmount(1000)) {
			t.Errorf("unrevoked releasable = %s, want 1000", got)
		}

		if _, err := eng.Release(ctx, "alice"); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if got, _ := eng.ReleasableAmount(ctx, "alice"); !got.IsZero() {
			t.Errorf("released releasable = %s, want 0", got)
		}
	})

	t.Run("unknown beneficiary errors", func(t *testing.T) {
		eng, _, _ := newVestingEngine(t)
		configure(t, eng)
		if _, err := eng.ReleasableAmount(ctx, "nobody"); !errors.Is(err, treasury.ErrNoAllocation) {
			t.Errorf("ReleasableAmount = %v, want ErrNoAllocation", err)
		}
	})
}

func TestReleaseIsSingleShot(t *testing.T) {
	ctx := context.Background()
	eng, cust, clock := newVestingEngine(t)
	configure(t, eng)
	clock.Advance(cliff)

	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrNothingToRelease) {
		t.Errorf("second Release = %v, want ErrNothingToRelease", err)
	}

	// Exactly one payout happened.
	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(1000)) {
		t.Errorf("alice balance = %s, want 1000", got)
	}
}

func TestReleaseConservation(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	// Enough for either allocation alone (1000 or 500), not for both.
	cust.Credit("treasury", types.NewAmount(1500))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithCliffDuration(cliff),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })
	configure(t, eng)
	clock.Advance(cliff)

	// Drain custody behind the ledger's back.
	if err := cust.Transfer(ctx, "attacker", types.NewAmount(100)); err != nil {
		t.Fatalf("drain failed: %v", err)
	}

	// 1400 held covers alice's 1000 alone but not the 1500 outstanding:
	// her release must be refused, because paying her would shortchange
	// bob.
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrConservation) {
		t.Errorf("Release = %v, want ErrConservation", err)
	}

	// Refill and both releases go through.
	cust.Credit("treasury", types.NewAmount(100))
	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Fatalf("Release after refill failed: %v", err)
	}
	if _, err := eng.Release(ctx, "bob"); err != nil {
		t.Fatalf("Release after refill failed: %v", err)
	}
}

func TestReleaseRollbackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := &failingCustodian{Memory: custodian.NewMemory("treasury")}
	cust.Credit("treasury", types.NewAmount(10_000))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithCliffDuration(cliff),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })
	configure(t, eng)
	clock.Advance(cliff)

	cust.failTransfer = true
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrTransferFailed) {
		t.Fatalf("Release = %v, want ErrTransferFailed", err)
	}

	// The released mark must roll back so a retry succeeds.
	cust.failTransfer = false
	amount, err := eng.Release(ctx, "alice")
	if err != nil {
		t.Fatalf("retry Release failed: %v", err)
	}
	if !amount.Equal(types.NewAmount(1000)) {
		t.Errorf("released %s, want 1000", amount)
	}
}

func TestPauseUnpause(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newVestingEngine(t)
	configure(t, eng)
	clock.Advance(cliff)

	if err := eng.Pause(ctx); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := eng.Pause(ctx); !errors.Is(err, treasury.ErrAlreadyPaused) {
		t.Errorf("double Pause = %v, want ErrAlreadyPaused", err)
	}
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrPaused) {
		t.Errorf("Release while paused = %v, want ErrPaused", err)
	}

	if err := eng.Unpause(ctx); err != nil {
		t.Fatalf("Unpause failed: %v", err)
	}
	if err := eng.Unpause(ctx); !errors.Is(err, treasury.ErrNotPaused) {
		t.Errorf("double Unpause = %v, want ErrNotPaused", err)
	}
	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Errorf("Release after unpause failed: %v", err)
	}
}

func TestRevokeUnrevokeRoundTrip(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newVestingEngine(t)
	configure(t, eng)

	if err := eng.Revoke(ctx, "alice"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if err := eng.Revoke(ctx, "alice"); !errors.Is(err, treasury.ErrAlreadyRevoked) {
		t.Errorf("double Revoke = %v, want ErrAlreadyRevoked", err)
	}
	if err := eng.Unrevoke(ctx, "bob"); !errors.Is(err, treasury.ErrNotRevoked) {
		t.Errorf("Unrevoke of non-revoked = %v, want ErrNotRevoked", err)
	}

	if err := eng.Unrevoke(ctx, "alice"); err != nil {
		t.Fatalf("Unrevoke failed: %v", err)
	}

	// The allocation comes back untouched.
	clock.Advance(cliff)
	amount, err := eng.Release(ctx, "alice")
	if err != nil {
		t.Fatalf("Release after unrevoke failed: %v", err)
	}
	if !amount.Equal(types.NewAmount(1000)) {
		t.Errorf("released %s, want 1000", amount)
	}
}

func TestRevokeAfterReleaseHasNoEffect(t *testing.T) {
	ctx := context.Background()
	eng, cust, clock := newVestingEngine(t)
	configure(t, eng)
	clock.Advance(cliff)

	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Revoke and unrevoke stay callable on a spent allocation, but no
	// further payout can come of it.
	if err := eng.Revoke(ctx, "alice"); err != nil {
		t.Fatalf("Revoke after release failed: %v", err)
	}
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrRevoked) {
		t.Errorf("Release while revoked = %v, want ErrRevoked", err)
	}
	if err := eng.Unrevoke(ctx, "alice"); err != nil {
		t.Fatalf("Unrevoke after release failed: %v", err)
	}
	if _, err := eng.Release(ctx, "alice"); !errors.Is(err, treasury.ErrNothingToRelease) {
		t.Errorf("Release after unrevoke = %v, want ErrNothingToRelease", err)
	}

	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(1000)) {
		t.Errorf("alice balance = %s, want exactly one 1000 payout", got)
	}
}

func TestAdminCheckGuardsPrivilegedOps(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	cust := custodian.NewMemory("treasury")
	cust.Credit("treasury", types.NewAmount(10_000))

	type adminKey struct{}
	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(clock.Now),
		treasury.WithAdminCheck(func(ctx context.Context) bool {
			ok, _ := ctx.Value(adminKey{}).(bool)
			return ok
		}),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	err := eng.Configure(ctx, []string{"alice"}, []types.Amount{types.NewAmount(1)})
	if !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("Configure without admin = %v, want ErrUnauthorized", err)
	}

	admin := context.WithValue(ctx, adminKey{}, true)
	if err := eng.Configure(admin, []string{"alice"}, []types.Amount{types.NewAmount(1)}); err != nil {
		t.Fatalf("Configure as admin failed: %v", err)
	}

	if err := eng.Pause(ctx); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("Pause without admin = %v, want ErrUnauthorized", err)
	}
	if err := eng.Revoke(ctx, "alice"); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("Revoke without admin = %v, want ErrUnauthorized", err)
	}
	if err := eng.EmergencyWithdraw(ctx, "vault", types.NewAmount(1)); !errors.Is(err, treasury.ErrUnauthorized) {
		t.Errorf("EmergencyWithdraw without admin = %v, want ErrUnauthorized", err)
	}

	// Release is not privileged.
	clock.Advance(91 * 24 * time.Hour)
	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Errorf("Release without admin failed: %v", err)
	}
}

func TestReleaseWritesReceipt(t *testing.T) {
	ctx := context.Background()
	eng, _, clock := newVestingEngine(t)
	configure(t, eng)
	clock.Advance(cliff)

	if _, err := eng.Release(ctx, "alice"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	receipts, err := eng.Receipts(ctx, receipt.ListOpts{Op: receipt.OpRelease})
	if err != nil {
		t.Fatalf("Receipts failed: %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("got %d release receipts, want 1", len(receipts))
	}
	if receipts[0].Account != "alice" || !receipts[0].Amount.Equal(types.NewAmount(1000)) {
		t.Errorf("receipt = %+v, want alice/1000", receipts[0])
	}
}
