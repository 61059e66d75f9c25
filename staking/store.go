package staking

import "context"

// Store persists the staking pool and its positions.
type Store interface {
	GetPool(ctx context.Context) (*Pool, error)
	PutPool(ctx context.Context, p *Pool) error

	GetPosition(ctx context.Context, account string) (*Position, error)
	PutPosition(ctx context.Context, p *Position) error
	DeletePosition(ctx context.Context, account string) error
	// ListPositions returns every open position ordered by account.
	ListPositions(ctx context.Context) ([]*Position, error)
}
