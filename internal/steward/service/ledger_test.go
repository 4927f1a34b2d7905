package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/store/drivers/memory"
	"github.com/stretchr/testify/require"
)

func TestLedgerLastWriteWins(t *testing.T) {
	ctx := context.Background()
	ledger := NewActivityLedger(memory.NewStore(), false)

	require.NoError(t, ledger.RecordActivity(ctx, "U1", 5000))
	require.NoError(t, ledger.MarkWarned(ctx, "U1", 5000))
	require.NoError(t, ledger.RecordActivity(ctx, "U1", 1000))

	rec, found, err := ledger.Lookup(ctx, "U1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, domain.ActivityRecord{AccountID: "U1", LastActivity: 1000}, rec)
}

func TestLedgerMonotonicIgnoresOlderTimestamps(t *testing.T) {
	ctx := context.Background()
	ledger := NewActivityLedger(memory.NewStore(), true)

	require.NoError(t, ledger.RecordActivity(ctx, "U1", 5000))
	require.NoError(t, ledger.RecordActivity(ctx, "U1", 1000))

	rec, _, err := ledger.Lookup(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 5000, rec.LastActivity)

	require.NoError(t, ledger.RecordActivity(ctx, "U1", 5000))
	require.NoError(t, ledger.RecordActivity(ctx, "U1", 6000))
	rec, _, err = ledger.Lookup(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 6000, rec.LastActivity)
}

func TestLedgerLookupMissing(t *testing.T) {
	ledger := NewActivityLedger(memory.NewStore(), false)

	_, found, err := ledger.Lookup(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, found)
}

func TestLedgerSerializesPerAccount(t *testing.T) {
	ctx := context.Background()
	ledger := NewActivityLedger(memory.NewStore(), false)
	require.NoError(t, ledger.RecordActivity(ctx, "U1", 1000))

	inside := make(chan struct{})
	release := make(chan struct{})
	recorded := make(chan struct{})

	go func() {
		_ = ledger.withRecord(ctx, "U1", func(rec domain.ActivityRecord, found bool) error {
			close(inside)
			<-release
			return ledger.Log.MarkWarned(ctx, "U1", rec.LastActivity)
		})
	}()
	<-inside

	go func() {
		_ = ledger.RecordActivity(ctx, "U1", 9000)
		close(recorded)
	}()

	select {
	case <-recorded:
		t.Fatal("RecordActivity ran while the account was locked")
	case <-time.After(50 * time.Millisecond):
	}

	// Other accounts are not blocked.
	require.NoError(t, ledger.RecordActivity(ctx, "U2", 1))

	close(release)
	<-recorded

	rec, _, err := ledger.Lookup(ctx, "U1")
	require.NoError(t, err)
	require.EqualValues(t, 9000, rec.LastActivity)
	require.False(t, rec.WarningSent)
}

func TestKeyLocksForgetIdleKeys(t *testing.T) {
	var k keyLocks

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock("U1")
			unlock()
		}()
	}
	wg.Wait()

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.m)
}
