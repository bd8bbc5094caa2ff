package sqlc

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Savepoint runs fn inside a savepoint when q is bound to a transaction, so a
// failed statement in fn (e.g. a unique violation) is rolled back without
// aborting the enclosing transaction. fn's statements still go through q; they
// share the connection the savepoint was opened on. Outside a transaction
// every statement commits on its own and fn runs as is.
func (q *Queries) Savepoint(ctx context.Context, fn func() error) error {
	tx, ok := q.db.(pgx.Tx)
	if !ok {
		return fn()
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback to savepoint: %w (after %w)", rbErr, err)
		}
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}
