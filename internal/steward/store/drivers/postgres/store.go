package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/internal/steward/store/migrations"
	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

// Store is the Postgres ledger driver, backed by a pgx connection pool.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// NewStore connects to the database at dsn and binds the ledger to table.
func NewStore(ctx context.Context, dsn, table string) (*Store, error) {
	if table == "" {
		table = store.DefaultTable
	}
	if err := store.ValidateTableName(table); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Store{pool: pool, table: table}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Activity() store.ActivityLog { return newActivityRepo(s.pool, s.table) }

// ApplyMigrations runs the ledger migrations through a database/sql handle
// borrowed from the pool. Closing that handle leaves the pool open.
func (s *Store) ApplyMigrations() error {
	db := stdlib.OpenDBFromPool(s.pool)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{
		MigrationsTable: s.table + "_schema_migrations",
	})
	if err != nil {
		_ = db.Close()
		return err
	}

	rendered, err := migrations.Render(migrations.Postgres, s.table)
	if err != nil {
		_ = driver.Close()
		return err
	}

	source, err := iofs.New(rendered, ".")
	if err != nil {
		_ = driver.Close()
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		_ = driver.Close()
		return err
	}
	defer instance.Close()

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
