package testhelper

import (
	"context"
	"fmt"
	"testing"
	"time"

	infraPostgres "github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer is a migrated Postgres instance for integration tests.
type PostgresContainer struct {
	Container *postgres.PostgresContainer
	DSN       string
}

// SetupPostgres starts postgres:16-alpine and applies every migration.
func SetupPostgres(ctx context.Context) (*PostgresContainer, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("interhubdev_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if _, err := infraPostgres.Migrate(connStr, "up"); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &PostgresContainer{
		Container: pgContainer,
		DSN:       connStr,
	}, nil
}

// Teardown terminates the container
func (c *PostgresContainer) Teardown(ctx context.Context) error {
	return c.Container.Terminate(ctx)
}

// Pool starts a container for t and returns a pool on it. Both are cleaned
// up when the test ends.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()
	pg, err := SetupPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Teardown(context.Background()) })

	pool, err := infraPostgres.Connect(ctx, pg.DSN, 20)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}
