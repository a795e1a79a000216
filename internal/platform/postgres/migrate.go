package postgres

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrateURL rewrites a postgres:// url for the pgx/v5 migrate driver.
func migrateURL(pgURL string) string {
	for _, scheme := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(pgURL, scheme) {
			return "pgx5://" + strings.TrimPrefix(pgURL, scheme)
		}
	}
	return pgURL
}

func newMigrate(pgURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, migrateURL(pgURL))
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func MigrateUp(log *slog.Logger, pgURL string) error {
	return run(log, pgURL, "up", func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown rolls back the given number of steps.
func MigrateDown(log *slog.Logger, pgURL string, steps int) error {
	if steps <= 0 {
		return errors.New("steps must be positive")
	}
	return run(log, pgURL, "down", func(m *migrate.Migrate) error { return m.Steps(-steps) })
}

func run(log *slog.Logger, pgURL, direction string, fn func(*migrate.Migrate) error) error {
	m, err := newMigrate(pgURL)
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("close migrate", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	err = fn(m)
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no change in migration", "direction", direction)
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	version, dirty, _ := m.Version()
	log.Info("migrated", "direction", direction, "version", version, "dirty", dirty)
	return nil
}
