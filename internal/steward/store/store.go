package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
)

var (
	ErrNotFound     = errors.New("store: not found")
	ErrInvalidTable = errors.New("store: invalid table name")
)

// DefaultTable is the ledger table used when none is configured.
const DefaultTable = "activity_log"

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres, memory) implement this.
type Store interface {
	Activity() ActivityLog

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// ActivityLog persists one ActivityRecord per account. Every method is a
// single atomic operation on one key; callers that need read-modify-write
// across calls serialize per account themselves.
type ActivityLog interface {
	// RecordActivity upserts the account with the given timestamp and clears
	// its warning flag.
	RecordActivity(ctx context.Context, accountID string, at int64) error

	// Lookup returns the record for accountID or ErrNotFound.
	Lookup(ctx context.Context, accountID string) (domain.ActivityRecord, error)

	// MarkWarned sets the warning flag, leaving the timestamp alone. It only
	// applies while the stored timestamp still equals lastActivity and returns
	// ErrNotFound otherwise.
	MarkWarned(ctx context.Context, accountID string, lastActivity int64) error

	// RemoveAccount deletes the record. Removing a missing record is not an
	// error.
	RemoveAccount(ctx context.Context, accountID string) error

	// InactiveSince lists records whose last activity is strictly before
	// cutoff, oldest first.
	InactiveSince(ctx context.Context, cutoff int64) ([]domain.ActivityRecord, error)
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName rejects anything that is not a plain SQL identifier. The
// table name is interpolated into statements, so this is the only guard.
func ValidateTableName(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}
