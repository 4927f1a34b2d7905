package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/sqlite"
	"github.com/aussiebroadwan/steward/internal/steward/store/storetest"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:", "activity_log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func TestActivityLogContract(t *testing.T) {
	storetest.Run(t, newMemoryStore)
}

func TestMigrationsAreIdempotentAndPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "steward.db")

	st, err := sqlite.NewStore("file:"+path, "custom_ledger")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Activity().RecordActivity(ctx, "U1", 1000))
	require.NoError(t, st.Close())

	reopened, err := sqlite.NewStore("file:"+path, "custom_ledger")
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.ApplyMigrations())

	rec, err := reopened.Activity().Lookup(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 1000, rec.LastActivity)
	require.NoError(t, reopened.Ping(ctx))
}

func TestNewStoreRejectsUnsafeTable(t *testing.T) {
	_, err := sqlite.NewStore(":memory:", "activity; DROP TABLE x")
	require.ErrorIs(t, err, store.ErrInvalidTable)
}
