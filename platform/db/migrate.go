package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DataCleaninghash/CustomerAII/platform/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies pending migrations from migrationsDir at startup.
// An empty directory means migrations are managed out of band and is not an
// error; an up-to-date schema is not one either.
func RunMigrations(_ context.Context, cfg config.DatabaseConfig, migrationsDir string) error {
	dir := strings.TrimSpace(migrationsDir)
	if dir == "" {
		return nil
	}

	m, err := migrate.New("file://"+dir, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("open migrations %s: %w", dir, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
