package subscriptions_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

func setupSubscriptionsIntegrationTest(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("skip integration test: database ping failed: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestConcurrentSubscribeReportsAlreadySubscribed(t *testing.T) {
	pool := setupSubscriptionsIntegrationTest(t)
	ctx := context.Background()
	chatID := -time.Now().UnixNano() % 1_000_000_000
	svc := subscriptions.NewService(nil, sqlc.New(pool))

	// The first insert stays uncommitted so the second one waits on the unique constraint.
	first, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = first.Rollback(ctx) }()
	outcome, err := svc.WithStore(sqlc.New(first)).Subscribe(ctx, chatID, subscriptions.CategoryStatus, true)
	require.NoError(t, err)
	require.Equal(t, subscriptions.OutcomeSubscribed, outcome)

	type result struct {
		outcome subscriptions.Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		var res result
		res.err = db.NewTransactor(pool).Do(ctx, func(q *sqlc.Queries) error {
			var err error
			res.outcome, err = svc.WithStore(q).Subscribe(ctx, chatID, subscriptions.CategoryStatus, true)
			return err
		})
		done <- res
	}()

	time.Sleep(200 * time.Millisecond)
	require.NoError(t, first.Commit(ctx))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, subscriptions.OutcomeAlreadySubscribed, res.outcome)

	outcome, err = svc.Unsubscribe(ctx, chatID, subscriptions.CategoryStatus, true)
	require.NoError(t, err)
	assert.Equal(t, subscriptions.OutcomeUnsubscribed, outcome)
}
