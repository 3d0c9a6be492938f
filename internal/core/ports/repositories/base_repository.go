package repositories

import (
	"context"
)

// TransactionManager runs a unit of work atomically.
type TransactionManager interface {
	// WithinTx runs fn inside a transaction carried by the returned context. fn's context
	// must be used for every store call that should join the transaction. When ctx already
	// carries a transaction it is reused and committing is left to the outer call.
	// A non-nil error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
