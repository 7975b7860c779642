package repository

import "context"

// Store runs a function inside one database transaction. Repository methods
// called with the ctx passed to fn observe and join that transaction, so the
// grade path can lock, write and reconcile atomically.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
