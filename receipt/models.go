// Package receipt defines the append-only journal of completed operations.
// Every state-changing engine call that succeeds writes one receipt, giving
// operators a replayable history of fund movements.
package receipt

import (
	"time"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/types"
)

// Op names the operation a receipt records.
type Op string

const (
	OpConfigure         Op = "configure"
	OpRelease           Op = "release"
	OpRevoke            Op = "revoke"
	OpUnrevoke          Op = "unrevoke"
	OpStake             Op = "stake"
	OpUnstake           Op = "unstake"
	OpClaim             Op = "claim"
	OpFund              Op = "fund"
	OpEmergencyWithdraw Op = "emergency_withdraw"
)

// Receipt is a single journal entry. Amount is zero for operations that move
// no funds (revoke, unrevoke).
type Receipt struct {
	types.Entity
	ID      id.ReceiptID      `json:"id"`
	Op      Op                `json:"op"`
	Account string            `json:"account,omitempty"`
	Amount  types.Amount      `json:"amount"`
	At      time.Time         `json:"at"`
	Detail  map[string]string `json:"detail,omitempty"`
}
