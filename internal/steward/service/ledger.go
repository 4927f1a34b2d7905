package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

// ActivityLedger is the service view of the activity log. Every operation on
// one account runs under that account's lock, so a login arriving during a
// sweep cannot interleave with the sweep's read-then-write.
type ActivityLedger struct {
	Log store.ActivityLog

	// Monotonic drops timestamps older than the stored one instead of
	// letting the last write win.
	Monotonic bool

	locks keyLocks
}

func NewActivityLedger(log store.ActivityLog, monotonic bool) *ActivityLedger {
	return &ActivityLedger{Log: log, Monotonic: monotonic}
}

// RecordActivity stores at as the account's last activity and clears any
// pending warning.
func (l *ActivityLedger) RecordActivity(ctx context.Context, accountID string, at int64) error {
	unlock := l.locks.lock(accountID)
	defer unlock()

	if l.Monotonic {
		rec, found, err := l.lookup(ctx, accountID)
		if err != nil {
			return err
		}
		if found && rec.LastActivity > at {
			slogx.FromContext(ctx).Debug("ignoring out-of-order activity",
				slog.String("account_id", accountID),
				slog.Int64("stored", rec.LastActivity),
				slog.Int64("received", at),
			)
			return nil
		}
	}

	if err := l.Log.RecordActivity(ctx, accountID, at); err != nil {
		observability.LedgerError("record_activity")
		return err
	}
	return nil
}

// Lookup reports the account's record and whether one exists.
func (l *ActivityLedger) Lookup(ctx context.Context, accountID string) (domain.ActivityRecord, bool, error) {
	unlock := l.locks.lock(accountID)
	defer unlock()
	return l.lookup(ctx, accountID)
}

// MarkWarned flags the account as warned while its timestamp is still
// lastActivity.
func (l *ActivityLedger) MarkWarned(ctx context.Context, accountID string, lastActivity int64) error {
	unlock := l.locks.lock(accountID)
	defer unlock()

	if err := l.Log.MarkWarned(ctx, accountID, lastActivity); err != nil {
		observability.LedgerError("mark_warned")
		return err
	}
	return nil
}

func (l *ActivityLedger) RemoveAccount(ctx context.Context, accountID string) error {
	unlock := l.locks.lock(accountID)
	defer unlock()

	if err := l.Log.RemoveAccount(ctx, accountID); err != nil {
		observability.LedgerError("remove_account")
		return err
	}
	return nil
}

// InactiveSince lists records older than cutoff. It takes no locks.
func (l *ActivityLedger) InactiveSince(ctx context.Context, cutoff int64) ([]domain.ActivityRecord, error) {
	recs, err := l.Log.InactiveSince(ctx, cutoff)
	if err != nil {
		observability.LedgerError("inactive_since")
		return nil, err
	}
	return recs, nil
}

// withRecord runs fn under the account lock with the current record. fn must
// use the ledger's Log directly; calling the locking methods would deadlock.
func (l *ActivityLedger) withRecord(
	ctx context.Context,
	accountID string,
	fn func(rec domain.ActivityRecord, found bool) error,
) error {
	unlock := l.locks.lock(accountID)
	defer unlock()

	rec, found, err := l.lookup(ctx, accountID)
	if err != nil {
		return err
	}
	return fn(rec, found)
}

func (l *ActivityLedger) lookup(ctx context.Context, accountID string) (domain.ActivityRecord, bool, error) {
	rec, err := l.Log.Lookup(ctx, accountID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return domain.ActivityRecord{}, false, nil
	case err != nil:
		observability.LedgerError("lookup")
		return domain.ActivityRecord{}, false, err
	}
	return rec, true, nil
}

// keyLocks is a set of mutexes keyed by account id. Entries are dropped once
// nobody holds or waits on them.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyLocks) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.m == nil {
		k.m = make(map[string]*keyLock)
	}
	l, ok := k.m[key]
	if !ok {
		l = &keyLock{}
		k.m[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.m, key)
		}
		k.mu.Unlock()
	}
}
