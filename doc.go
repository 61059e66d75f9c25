// Package treasury provides a composable token vesting and staking engine for Go applications.
//
// Treasury is designed as a library, not a service. Import it directly into your Go
// application for maximum performance and flexibility. It provides:
//
//   - Fixed-allocation vesting with a global cliff, pause, and per-beneficiary revocation
//   - Single-shot releases guarded by a pool-wide conservation check
//   - Time-weighted staking rewards with lazy settlement and a mutable rate
//   - Lockups measured from the original stake time, never reset by top-ups
//   - An append-only receipt journal of every fund movement
//   - Pluggable lifecycle hooks (collectible minting, audit, alerting)
//
// # Quick Start
//
// Create a treasury instance with your preferred store and custodian:
//
//	import (
//	    "github.com/xraph/treasury"
//	    "github.com/xraph/treasury/custodian"
//	    "github.com/xraph/treasury/store/postgres"
//	)
//
//	// Initialize store
//	store, err := postgres.Open(ctx, databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Create treasury
//	t := treasury.New(store, custodianImpl)
//
//	// Start the treasury (runs migrations, bootstraps the staking pool)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Vesting is configured exactly once, and every allocation releases exactly once:
//
//	err := t.Configure(ctx,
//	    []string{"alice", "bob"},
//	    []treasury.Amount{treasury.NewAmount(1000), treasury.NewAmount(500)},
//	)
//
//	// After the cliff:
//	amount, err := t.Release(ctx, "alice")
//
// Staking accrues rewards continuously at an annual basis-point rate:
//
//	err := t.Stake(ctx, "carol", treasury.NewAmount(10_000))
//
//	// After the lockup:
//	earned, err := t.ClaimRewards(ctx, "carol")
//	err = t.Unstake(ctx, "carol", treasury.NewAmount(10_000))
//
// # Conservation
//
// Release refuses to pay any beneficiary while the custodian holds less
// than the sum of all outstanding allocations. A breach is reported through
// the OnConservationBreach plugin hook rather than silently paying some
// beneficiaries out of others' entitlements.
//
// All amounts use 256-bit integer arithmetic to avoid floating-point
// precision issues and overflow in reward products. The Amount type
// represents values in the smallest token unit.
//
// # Integration
//
// Treasury integrates with the Forgery ecosystem:
//
//   - Forge: Scope extraction and admin authorization
//   - Vessel: Lifecycle management for embedded deployments
//
// # TypeID
//
// Journal entries and mint requests use TypeID for globally unique,
// type-safe identifiers:
//
//	rcpt_01h2xcejqtf2nbrexx3vqjhp41  // Receipt ID
//	mint_01h455vb4pex5vsknk084sn02q  // Mint request ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package treasury
