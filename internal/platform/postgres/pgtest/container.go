//go:build integration

package pgtest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	platformpg "github.com/dmehra2102/order-fulfillment/internal/platform/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Env struct {
	PG    *postgres.PostgresContainer
	PGURL string
	Pool  *pgxpool.Pool
}

// Setup starts a migrated Postgres and registers its teardown on t.
func Setup(t *testing.T) *Env {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("orderflow"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, platformpg.MigrateUp(log, pgURL))

	pool, err := platformpg.Connect(ctx, platformpg.PoolConfig{URL: pgURL, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return &Env{PG: pgC, PGURL: pgURL, Pool: pool}
}
