package postgres

import (
	"errors"
	"fmt"

	"github.com/AlexeyMuratov2/interhubdev-sub002/migrations"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrate applies ("up") or rolls back ("down") the embedded schema
// migrations against dsn. It reports whether anything changed.
func Migrate(dsn, direction string) (bool, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return false, fmt.Errorf("load migration files: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return false, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return false, fmt.Errorf("unknown migration direction: %s", direction)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration %s failed: %w", direction, err)
	}

	return true, nil
}
