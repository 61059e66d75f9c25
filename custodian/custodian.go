// Package custodian abstracts the external balance keeper that actually
// holds and moves funds. The engine records entitlements and instructs the
// custodian; the custodian is the source of truth for balances.
package custodian

import (
	"context"

	"github.com/xraph/treasury/types"
)

// Custodian moves funds between accounts on behalf of the engine. A transfer
// error means no funds moved; the engine compensates its own records when
// that happens.
type Custodian interface {
	// BalanceOf returns the spendable balance of account.
	BalanceOf(ctx context.Context, account string) (types.Amount, error)

	// Transfer moves amount from the engine's own account to the given
	// account.
	Transfer(ctx context.Context, to string, amount types.Amount) error

	// TransferFrom moves amount from an external account into the engine's
	// own account. The custodian enforces whatever authorization the
	// underlying system requires.
	TransferFrom(ctx context.Context, from string, amount types.Amount) error
}
