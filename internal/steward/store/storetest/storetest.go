// Package storetest is the behavioural contract every ledger driver must
// satisfy. Driver tests call Run with a constructor for a fresh, migrated
// store.
package storetest

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/stretchr/testify/require"
)

// Run exercises the ActivityLog contract against stores built by newStore.
// Each subtest gets its own store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("lookup of unknown account", func(t *testing.T) {
		log := newStore(t).Activity()

		_, err := log.Lookup(ctx, "nobody")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("last write wins regardless of order", func(t *testing.T) {
		log := newStore(t).Activity()

		for _, at := range []int64{1000, 5000, 3000} {
			require.NoError(t, log.RecordActivity(ctx, "U1", at))
		}

		rec, err := log.Lookup(ctx, "U1")
		require.NoError(t, err)
		require.Equal(t, domain.ActivityRecord{AccountID: "U1", LastActivity: 3000}, rec)
	})

	t.Run("mark warned keeps timestamp and activity resets flag", func(t *testing.T) {
		log := newStore(t).Activity()

		require.NoError(t, log.RecordActivity(ctx, "U1", 1000))
		require.NoError(t, log.MarkWarned(ctx, "U1", 1000))

		rec, err := log.Lookup(ctx, "U1")
		require.NoError(t, err)
		require.Equal(t, domain.ActivityRecord{AccountID: "U1", LastActivity: 1000, WarningSent: true}, rec)

		require.NoError(t, log.RecordActivity(ctx, "U1", 1000))
		rec, err = log.Lookup(ctx, "U1")
		require.NoError(t, err)
		require.False(t, rec.WarningSent)
	})

	t.Run("mark warned is conditional on timestamp", func(t *testing.T) {
		log := newStore(t).Activity()

		require.NoError(t, log.RecordActivity(ctx, "U1", 2000))
		require.ErrorIs(t, log.MarkWarned(ctx, "U1", 1000), store.ErrNotFound)
		require.ErrorIs(t, log.MarkWarned(ctx, "U2", 1000), store.ErrNotFound)

		rec, err := log.Lookup(ctx, "U1")
		require.NoError(t, err)
		require.False(t, rec.WarningSent)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		log := newStore(t).Activity()

		require.NoError(t, log.RecordActivity(ctx, "U1", 1000))
		require.NoError(t, log.RemoveAccount(ctx, "U1"))
		require.NoError(t, log.RemoveAccount(ctx, "U1"))

		_, err := log.Lookup(ctx, "U1")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("inactive since lists oldest first", func(t *testing.T) {
		log := newStore(t).Activity()

		require.NoError(t, log.RecordActivity(ctx, "U3", 300))
		require.NoError(t, log.RecordActivity(ctx, "U1", 100))
		require.NoError(t, log.RecordActivity(ctx, "U2", 200))
		require.NoError(t, log.RecordActivity(ctx, "U4", 400))
		require.NoError(t, log.MarkWarned(ctx, "U2", 200))

		recs, err := log.InactiveSince(ctx, 300)
		require.NoError(t, err)
		require.Equal(t, []domain.ActivityRecord{
			{AccountID: "U1", LastActivity: 100},
			{AccountID: "U2", LastActivity: 200, WarningSent: true},
		}, recs)

		recs, err = log.InactiveSince(ctx, 50)
		require.NoError(t, err)
		require.Empty(t, recs)
	})
}
