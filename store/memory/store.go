// Package memory implements the Treasury store on in-process maps. It is
// the default backend for tests and embedded single-node use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/treasury"
	"github.com/xraph/treasury/receipt"
	"github.com/xraph/treasury/staking"
	"github.com/xraph/treasury/vesting"
)

type Store struct {
	mu sync.RWMutex

	vestingPool *vesting.Pool
	allocations map[string]*vesting.Allocation

	stakingPool *staking.Pool
	positions   map[string]*staking.Position

	receipts []*receipt.Receipt

	closed bool
}

func New() *Store {
	return &Store{
		allocations: make(map[string]*vesting.Allocation),
		positions:   make(map[string]*staking.Position),
		receipts:    make([]*receipt.Receipt, 0),
	}
}

// Vesting Store implementation

func (s *Store) GetVestingPool(_ context.Context) (*vesting.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vestingPool == nil {
		return nil, treasury.ErrNotFound
	}
	cp := *s.vestingPool
	return &cp, nil
}

func (s *Store) PutVestingPool(_ context.Context, p *vesting.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	cp := *p
	s.vestingPool = &cp
	return nil
}

func (s *Store) GetAllocation(_ context.Context, beneficiary string) (*vesting.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.allocations[beneficiary]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, treasury.ErrNoAllocation
}

func (s *Store) PutAllocation(_ context.Context, a *vesting.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	cp := *a
	s.allocations[a.Beneficiary] = &cp
	return nil
}

func (s *Store) PutAllocations(_ context.Context, allocs []*vesting.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	for _, a := range allocs {
		cp := *a
		s.allocations[a.Beneficiary] = &cp
	}
	return nil
}

func (s *Store) ListAllocations(_ context.Context) ([]*vesting.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*vesting.Allocation, 0, len(s.allocations))
	for _, a := range s.allocations {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Position < result[j].Position
	})
	return result, nil
}

// Staking Store implementation

func (s *Store) GetStakingPool(_ context.Context) (*staking.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stakingPool == nil {
		return nil, treasury.ErrNotFound
	}
	cp := *s.stakingPool
	return &cp, nil
}

func (s *Store) PutStakingPool(_ context.Context, p *staking.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	cp := *p
	s.stakingPool = &cp
	return nil
}

func (s *Store) GetPosition(_ context.Context, account string) (*staking.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.positions[account]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, treasury.ErrNoPosition
}

func (s *Store) PutPosition(_ context.Context, p *staking.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	cp := *p
	s.positions[p.Account] = &cp
	return nil
}

func (s *Store) DeletePosition(_ context.Context, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	if _, ok := s.positions[account]; !ok {
		return treasury.ErrNoPosition
	}
	delete(s.positions, account)
	return nil
}

func (s *Store) ListPositions(_ context.Context) ([]*staking.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*staking.Position, 0, len(s.positions))
	for _, p := range s.positions {
		cp := *p
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Account < result[j].Account
	})
	return result, nil
}

// Receipt Store implementation

func (s *Store) AppendReceipt(_ context.Context, r *receipt.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	cp := *r
	s.receipts = append(s.receipts, &cp)
	return nil
}

func (s *Store) ListReceipts(_ context.Context, opts receipt.ListOpts) ([]*receipt.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*receipt.Receipt, 0)
	for _, r := range s.receipts {
		if opts.Op != "" && r.Op != opts.Op {
			continue
		}
		if opts.Account != "" && r.Account != opts.Account {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return treasury.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
