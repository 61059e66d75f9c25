package treasury

import "github.com/xraph/treasury/types"

// Re-export common types for convenience so users don't have to import types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors
var (
	NewAmount       = types.NewAmount
	ParseAmount     = types.ParseAmount
	MustParseAmount = types.MustParseAmount
	SumAmounts      = types.SumAmounts
	ZeroAmount      = types.ZeroAmount
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
