// Package collectible mints commemorative collectibles when stakers exit.
//
// It defines a local Minter interface so the package does not import any
// minting backend directly. Callers inject a MinterFunc adapter that
// bridges to their NFT or badge system at wiring time. Minting is strictly
// best-effort: a mint failure never affects the unstake that triggered it.
package collectible

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/plugin"
	"github.com/xraph/treasury/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin     = (*Extension)(nil)
	_ plugin.OnUnstaked = (*Extension)(nil)
)

// MintRequest describes one collectible to mint.
type MintRequest struct {
	ID      id.MintID    `json:"id"`
	Account string       `json:"account"`
	Amount  types.Amount `json:"amount"`
	At      time.Time    `json:"at"`
}

// Minter is the interface that minting backends must implement. It is
// defined locally so this package carries no backend dependency — callers
// inject the concrete minter at wiring time.
type Minter interface {
	Mint(ctx context.Context, req *MintRequest) error
}

// MinterFunc is an adapter to use a plain function as a Minter.
type MinterFunc func(ctx context.Context, req *MintRequest) error

// Mint implements Minter.
func (f MinterFunc) Mint(ctx context.Context, req *MintRequest) error {
	return f(ctx, req)
}

// Extension bridges unstake events to a collectible minting backend.
type Extension struct {
	minter    Minter
	threshold types.Amount
	logger    *slog.Logger
}

// New creates an Extension that mints through the provided Minter.
func New(m Minter, opts ...Option) *Extension {
	e := &Extension{
		minter: m,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithThreshold mints only for unstakes of at least amount.
func WithThreshold(amount types.Amount) Option {
	return func(e *Extension) {
		e.threshold = amount
	}
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "collectible" }

// OnUnstaked implements plugin.OnUnstaked. The unstake has already
// committed when this runs; mint failures are logged and swallowed.
func (e *Extension) OnUnstaked(ctx context.Context, account string, amount interface{}) error {
	a, ok := amount.(types.Amount)
	if !ok {
		return nil
	}
	if a.LessThan(e.threshold) {
		return nil
	}

	req := &MintRequest{
		ID:      id.NewMintID(),
		Account: account,
		Amount:  a,
		At:      time.Now().UTC(),
	}

	if err := e.minter.Mint(ctx, req); err != nil {
		e.logger.Warn("collectible: mint failed",
			"account", account,
			"mint_id", req.ID.String(),
			"error", err,
		)
	}
	return nil
}
