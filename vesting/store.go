package vesting

import "context"

// Store persists the vesting pool and its allocations.
type Store interface {
	GetPool(ctx context.Context) (*Pool, error)
	PutPool(ctx context.Context, p *Pool) error

	GetAllocation(ctx context.Context, beneficiary string) (*Allocation, error)
	PutAllocation(ctx context.Context, a *Allocation) error
	// PutAllocations writes the full allocation set in one batch. Used by
	// configuration so a partial failure never leaves a half-written table.
	PutAllocations(ctx context.Context, allocs []*Allocation) error
	// ListAllocations returns every allocation ordered by Position.
	ListAllocations(ctx context.Context) ([]*Allocation, error)
}
