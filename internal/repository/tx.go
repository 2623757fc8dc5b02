package repository

import "context"

// Transactor runs fn inside a single storage transaction. Repositories called
// with the ctx passed to fn take part in that transaction. The transaction is
// committed when fn returns nil and rolled back otherwise. Nested calls reuse
// the outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
