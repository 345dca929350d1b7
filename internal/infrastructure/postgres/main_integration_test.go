//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	infraPostgres "github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/testhelper"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	pg, err := testhelper.SetupPostgres(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	testPool, err = infraPostgres.Connect(ctx, pg.DSN, 20)
	if err != nil {
		_ = pg.Teardown(ctx)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	code := m.Run()

	testPool.Close()
	_ = pg.Teardown(ctx)
	os.Exit(code)
}

// reset empties every table so each test starts from a clean database.
func reset(t *testing.T) {
	t.Helper()

	_, err := testPool.Exec(context.Background(), `
		TRUNCATE outbox_events, inbox_events, attendance_records, absence_notices, notifications
	`)
	require.NoError(t, err)
}
