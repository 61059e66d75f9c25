package collectible_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/collectible"
	"github.com/xraph/treasury/custodian"
	"github.com/xraph/treasury/store/memory"
	"github.com/xraph/treasury/types"
)

func TestMintOnUnstake(t *testing.T) {
	ctx := context.Background()

	var minted []*collectible.MintRequest
	ext := collectible.New(collectible.MinterFunc(
		func(_ context.Context, req *collectible.MintRequest) error {
			minted = append(minted, req)
			return nil
		},
	))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cust := custodian.NewMemory("treasury")
	cust.Credit("alice", types.NewAmount(1_000))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(func() time.Time { return now }),
		treasury.WithLockupDuration(time.Hour),
		treasury.WithPlugin(ext),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Stake(ctx, "alice", types.NewAmount(1_000)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	now = now.Add(2 * time.Hour)
	if err := eng.Unstake(ctx, "alice", types.NewAmount(1_000)); err != nil {
		t.Fatalf("Unstake failed: %v", err)
	}

	if len(minted) != 1 {
		t.Fatalf("minted %d collectibles, want 1", len(minted))
	}
	if minted[0].Account != "alice" || !minted[0].Amount.Equal(types.NewAmount(1_000)) {
		t.Errorf("mint request = %+v, want alice/1000", minted[0])
	}
	if minted[0].ID.IsNil() {
		t.Error("mint request has nil ID")
	}
}

func TestThresholdSkipsSmallUnstakes(t *testing.T) {
	var minted int
	ext := collectible.New(
		collectible.MinterFunc(func(_ context.Context, _ *collectible.MintRequest) error {
			minted++
			return nil
		}),
		collectible.WithThreshold(types.NewAmount(500)),
	)

	ctx := context.Background()
	if err := ext.OnUnstaked(ctx, "alice", types.NewAmount(499)); err != nil {
		t.Fatalf("OnUnstaked failed: %v", err)
	}
	if err := ext.OnUnstaked(ctx, "alice", types.NewAmount(500)); err != nil {
		t.Fatalf("OnUnstaked failed: %v", err)
	}

	if minted != 1 {
		t.Errorf("minted %d, want 1 (only the at-threshold unstake)", minted)
	}
}

func TestMintFailureDoesNotFailUnstake(t *testing.T) {
	ctx := context.Background()

	ext := collectible.New(collectible.MinterFunc(
		func(_ context.Context, _ *collectible.MintRequest) error {
			return errors.New("mint backend down")
		},
	))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cust := custodian.NewMemory("treasury")
	cust.Credit("alice", types.NewAmount(100))

	eng := treasury.New(memory.New(), cust,
		treasury.WithClock(func() time.Time { return now }),
		treasury.WithLockupDuration(0),
		treasury.WithPlugin(ext),
	)
	if err := eng.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })

	if err := eng.Stake(ctx, "alice", types.NewAmount(100)); err != nil {
		t.Fatalf("Stake failed: %v", err)
	}
	if err := eng.Unstake(ctx, "alice", types.NewAmount(100)); err != nil {
		t.Errorf("Unstake failed despite best-effort mint: %v", err)
	}

	// The funds really moved.
	got, _ := cust.BalanceOf(ctx, "alice")
	if !got.Equal(types.NewAmount(100)) {
		t.Errorf("alice balance = %s, want 100", got)
	}
}
