package modules

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"

	"github.com/congresbot/congresbot/internal/config"
	"github.com/congresbot/congresbot/internal/db"
	"github.com/congresbot/congresbot/internal/db/sqlc"
	"github.com/congresbot/congresbot/internal/logger"
)

const outboundTimeout = 30 * time.Second

// InfraModule provides the logger, the database pool and the shared HTTP client.
// config.Config and *boot.RuntimeConfig are supplied by the caller.
var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		ProvideLogger,
		provideHTTPClient,
		provideDBConn,
		provideDBQueries,
		provideTransactor,
	),
)

// ProvideLogger initializes the global logger from the log section.
func ProvideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideHTTPClient() *http.Client {
	return &http.Client{Timeout: outboundTimeout}
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), outboundTimeout)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideDBQueries(conn *pgxpool.Pool) *sqlc.Queries {
	return sqlc.New(conn)
}

func provideTransactor(conn *pgxpool.Pool) db.Transactor {
	return db.NewTransactor(conn)
}
