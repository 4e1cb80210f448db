package outbound

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// TxManager runs a function inside a database transaction. The transaction is
// rolled back if fn returns an error and committed otherwise.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}
