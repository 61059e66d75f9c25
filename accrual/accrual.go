// Package accrual implements the time-weighted reward calculation used by
// the staking ledger.
//
// Rewards grow linearly over time: a position of amount A held for S seconds
// at an annual rate of R basis points earns
//
//	A * R * S / (SecondsPerYear * BasisPointsDenom)
//
// All arithmetic is 256-bit and the division happens last, so intermediate
// products never lose precision. The result is floored, which means a
// position can under-credit by at most one base unit per settlement.
package accrual

import (
	"time"

	"github.com/xraph/treasury/types"
)

const (
	// SecondsPerYear is the annualization constant: 365 days of 86400 seconds.
	SecondsPerYear = 31_536_000

	// BasisPointsDenom converts basis points to a fraction (100 bps = 1%).
	BasisPointsDenom = 10_000
)

// Accrued returns the reward earned by amount held for elapsedSeconds at an
// annual rate of rateBps basis points. A zero amount, rate, or duration
// yields zero.
func Accrued(amount types.Amount, rateBps uint32, elapsedSeconds uint64) types.Amount {
	if amount.IsZero() || rateBps == 0 || elapsedSeconds == 0 {
		return types.ZeroAmount
	}

	return amount.
		MulUint64(uint64(rateBps)).
		MulUint64(elapsedSeconds).
		DivUint64(SecondsPerYear * BasisPointsDenom)
}

// AccruedBetween is a convenience wrapper over Accrued for callers that hold
// timestamps rather than a duration. It returns zero when to is not after
// from, so clock skew never produces a negative accrual.
func AccruedBetween(amount types.Amount, rateBps uint32, from, to time.Time) types.Amount {
	if !to.After(from) {
		return types.ZeroAmount
	}

	return Accrued(amount, rateBps, uint64(to.Sub(from)/time.Second))
}
