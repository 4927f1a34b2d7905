package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/steward/internal/steward/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db    *sql.DB
	table string
	dsn   string
}

// NewStore opens the sqlite database at dsn and binds the ledger to table.
func NewStore(dsn, table string) (*Store, error) {
	if table == "" {
		table = store.DefaultTable
	}
	if err := store.ValidateTableName(table); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One writer at a time is all sqlite gives us anyway, and a single
	// connection keeps ":memory:" databases shared between migrate and queries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:    db,
		table: table,
		dsn:   dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Activity() store.ActivityLog { return newActivityRepo(s.db, s.table) }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
