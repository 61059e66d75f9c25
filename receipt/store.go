package receipt

import "context"

// Store is the append-only journal backend. Receipts are never updated or
// deleted once written.
type Store interface {
	Append(ctx context.Context, r *Receipt) error
	List(ctx context.Context, opts ListOpts) ([]*Receipt, error)
}

// ListOpts filters journal reads. Zero values mean no filter.
type ListOpts struct {
	Op      Op
	Account string
	Limit   int
	Offset  int
}
