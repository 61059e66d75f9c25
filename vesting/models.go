// Package vesting defines the vesting ledger data model: a single pool with
// a global cliff and the per-beneficiary allocations funded from it.
package vesting

import (
	"time"

	"github.com/xraph/treasury/types"
)

// PoolKey identifies the singleton vesting pool record in a store.
const PoolKey = "vesting"

// Pool holds the shared vesting schedule state. A pool is configured exactly
// once; after that only its Paused flag and per-allocation state change.
type Pool struct {
	types.Entity
	CliffDuration  time.Duration `json:"cliff_duration"`
	StartTime      *time.Time    `json:"start_time,omitempty"`
	TotalAllocated types.Amount  `json:"total_allocated"`
	Paused         bool          `json:"paused"`
	Configured     bool          `json:"configured"`
}

// CliffEnd returns the instant at which allocations become releasable.
// The second return is false while the pool is unconfigured.
func (p *Pool) CliffEnd() (time.Time, bool) {
	if !p.Configured || p.StartTime == nil {
		return time.Time{}, false
	}

	return p.StartTime.Add(p.CliffDuration), true
}

// CliffReached reports whether at has reached or passed the cliff end.
// The boundary instant itself counts as reached.
func (p *Pool) CliffReached(at time.Time) bool {
	end, ok := p.CliffEnd()
	if !ok {
		return false
	}

	return !at.Before(end)
}

// Allocation is one beneficiary's fixed entitlement. Amount never changes
// after configuration; Released flips once on a successful release and
// Revoked toggles with revoke/unrevoke.
type Allocation struct {
	types.Entity
	Beneficiary string       `json:"beneficiary"`
	Amount      types.Amount `json:"amount"`
	Released    bool         `json:"released"`
	Revoked     bool         `json:"revoked"`
	Position    int          `json:"position"`
}

// Releasable reports whether this allocation still has value to release,
// ignoring pool-level gates (cliff, pause).
func (a *Allocation) Releasable() bool {
	return !a.Released && !a.Revoked && !a.Amount.IsZero()
}
