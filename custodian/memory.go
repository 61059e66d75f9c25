package custodian

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/treasury/types"
)

// Memory is an in-process custodian for tests and single-node deployments.
// It tracks balances in a map and binds Transfer/TransferFrom to a holder
// account named at construction.
type Memory struct {
	mu       sync.Mutex
	holder   string
	balances map[string]types.Amount
}

var _ Custodian = (*Memory)(nil)

// NewMemory creates a Memory custodian whose engine-side account is holder.
func NewMemory(holder string) *Memory {
	return &Memory{
		holder:   holder,
		balances: make(map[string]types.Amount),
	}
}

// Credit adds amount to account out of thin air. Test setup only.
func (m *Memory) Credit(account string, amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[account] = m.balances[account].Add(amount)
}

// BalanceOf returns the current balance of account.
func (m *Memory) BalanceOf(_ context.Context, account string) (types.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.balances[account], nil
}

// Transfer moves amount from the holder account to the given account.
func (m *Memory) Transfer(_ context.Context, to string, amount types.Amount) error {
	return m.move(m.holder, to, amount)
}

// TransferFrom moves amount from an external account into the holder account.
func (m *Memory) TransferFrom(_ context.Context, from string, amount types.Amount) error {
	return m.move(from, m.holder, amount)
}

func (m *Memory) move(from, to string, amount types.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	have := m.balances[from]
	if have.LessThan(amount) {
		return fmt.Errorf("custodian: account %q holds %s, cannot move %s", from, have, amount)
	}

	m.balances[from] = have.Sub(amount)
	m.balances[to] = m.balances[to].Add(amount)

	return nil
}
