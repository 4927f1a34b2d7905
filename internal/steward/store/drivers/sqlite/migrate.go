package sqlite

import (
	"errors"

	"github.com/aussiebroadwan/steward/internal/steward/store/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending ledger migrations. The migration files
// are rendered for the configured table and versioned in their own
// "<table>_schema_migrations" table, so several ledgers can share a database.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{
		MigrationsTable: s.table + "_schema_migrations",
	})
	if err != nil {
		return err
	}

	rendered, err := migrations.Render(migrations.SQLite, s.table)
	if err != nil {
		return err
	}

	source, err := iofs.New(rendered, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return err
	}

	// Closing the instance would close s.db as well.
	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
