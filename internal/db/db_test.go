package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congresbot/congresbot/internal/db/sqlc"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
	nested     *fakeTx
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	f.nested = &fakeTx{}
	return f.nested, nil
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (f *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tx, nil
}

func TestInTxCommits(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	err := InTx(context.Background(), b, func(tx pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.True(t, b.tx.committed)
	assert.False(t, b.tx.rolledBack)
}

func TestInTxRollsBackOnError(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := InTx(context.Background(), b, func(tx pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, b.tx.committed)
	assert.True(t, b.tx.rolledBack)
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	assert.PanicsWithValue(t, "kaput", func() {
		_ = InTx(context.Background(), b, func(tx pgx.Tx) error { panic("kaput") })
	})
	assert.True(t, b.tx.rolledBack)
	assert.False(t, b.tx.committed)
}

func TestInTxCommitFailure(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{commitErr: errors.New("conn lost")}}
	err := InTx(context.Background(), b, func(tx pgx.Tx) error { return nil })
	assert.ErrorContains(t, err, "commit tx")
	assert.True(t, b.tx.rolledBack)
}

func TestInTxBeginFailure(t *testing.T) {
	b := &fakeBeginner{err: errors.New("pool closed")}
	called := false
	err := InTx(context.Background(), b, func(tx pgx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorContains(t, err, "begin tx")
	assert.False(t, called)
}

func TestPoolTransactorBindsQueries(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	tr := NewTransactor(b)

	called := false
	err := tr.Do(context.Background(), func(q *sqlc.Queries) error {
		called = true
		assert.NotNil(t, q)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, b.tx.committed)
}

func TestSavepointRollsBackFailedStatement(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	tr := NewTransactor(b)
	violation := &pgconn.PgError{Code: "23505"}

	var spErr error
	err := tr.Do(context.Background(), func(q *sqlc.Queries) error {
		spErr = q.Savepoint(context.Background(), func() error { return violation })
		return nil
	})
	require.NoError(t, err)
	assert.True(t, IsUniqueViolation(spErr))
	require.NotNil(t, b.tx.nested)
	assert.True(t, b.tx.nested.rolledBack)
	assert.False(t, b.tx.nested.committed)
	assert.True(t, b.tx.committed)
}

func TestSavepointReleasedOnSuccess(t *testing.T) {
	b := &fakeBeginner{tx: &fakeTx{}}
	tr := NewTransactor(b)

	err := tr.Do(context.Background(), func(q *sqlc.Queries) error {
		return q.Savepoint(context.Background(), func() error { return nil })
	})
	require.NoError(t, err)
	require.NotNil(t, b.tx.nested)
	assert.True(t, b.tx.nested.committed)
	assert.False(t, b.tx.nested.rolledBack)
}

type plainDB struct {
	sqlc.DBTX
}

func TestSavepointOutsideTransaction(t *testing.T) {
	boom := errors.New("boom")
	q := sqlc.New(plainDB{})
	assert.NoError(t, q.Savepoint(context.Background(), func() error { return nil }))
	assert.ErrorIs(t, q.Savepoint(context.Background(), func() error { return boom }), boom)
}
