package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/congresbot/congresbot/internal/db/sqlc"
)

// Transactor runs a unit of work against queries bound to one transaction.
type Transactor interface {
	Do(ctx context.Context, fn func(q *sqlc.Queries) error) error
}

// PoolTransactor opens a transaction per Do call.
type PoolTransactor struct {
	beginner TxBeginner
}

// NewTransactor creates a Transactor on the pool.
func NewTransactor(beginner TxBeginner) *PoolTransactor {
	return &PoolTransactor{beginner: beginner}
}

// Do commits when fn returns nil and rolls back otherwise.
func (t *PoolTransactor) Do(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	return InTx(ctx, t.beginner, func(tx pgx.Tx) error {
		return fn(sqlc.New(tx))
	})
}
