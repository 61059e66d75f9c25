package store

import (
	"context"

	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/vesting"
)

// Store is the unified storage interface for all Treasury entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
type Store interface {
	// Vesting methods
	GetVestingPool(ctx context.Context) (*vesting.Pool, error)
	PutVestingPool(ctx context.Context, p *vesting.Pool) error
	GetAllocation(ctx context.Context, beneficiary string) (*vesting.Allocation, error)
	PutAllocation(ctx context.Context, a *vesting.Allocation) error
	PutAllocations(ctx context.Context, allocs []*vesting.Allocation) error
	ListAllocations(ctx context.Context) ([]*vesting.Allocation, error)

	// Staking methods
	GetStakingPool(ctx context.Context) (*staking.Pool, error)
	PutStakingPool(ctx context.Context, p *staking.Pool) error
	GetPosition(ctx context.Context, account string) (*staking.Position, error)
	PutPosition(ctx context.Context, p *staking.Position) error
	DeletePosition(ctx context.Context, account string) error
	ListPositions(ctx context.Context) ([]*staking.Position, error)

	// Receipt methods
	AppendReceipt(ctx context.Context, r *receipt.Receipt) error
	ListReceipts(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// VestingStore adapts a Store to the narrow vesting.Store interface.
type VestingStore struct{ Store }

func (s VestingStore) GetPool(ctx context.Context) (*vesting.Pool, error) {
	return s.GetVestingPool(ctx)
}

func (s VestingStore) PutPool(ctx context.Context, p *vesting.Pool) error {
	return s.PutVestingPool(ctx, p)
}

// StakingStore adapts a Store to the narrow staking.Store interface.
type StakingStore struct{ Store }

func (s StakingStore) GetPool(ctx context.Context) (*staking.Pool, error) {
	return s.GetStakingPool(ctx)
}

func (s StakingStore) PutPool(ctx context.Context, p *staking.Pool) error {
	return s.PutStakingPool(ctx, p)
}

// ReceiptStore adapts a Store to the narrow receipt.Store interface.
type ReceiptStore struct{ Store }

func (s ReceiptStore) Append(ctx context.Context, r *receipt.Receipt) error {
	return s.AppendReceipt(ctx, r)
}

func (s ReceiptStore) List(ctx context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	return s.ListReceipts(ctx, opts)
}
