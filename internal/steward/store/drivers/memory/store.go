// Package memory is an in-process ledger driver used by tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/store"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]domain.ActivityRecord

	// one-shot failures keyed by account, see FailNext
	failMu   sync.Mutex
	failNext map[string]error
}

func NewStore() *Store {
	return &Store{
		records:  make(map[string]domain.ActivityRecord),
		failNext: make(map[string]error),
	}
}

// FailNext makes the next operation touching accountID return err.
func (s *Store) FailNext(accountID string, err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failNext[accountID] = err
}

func (s *Store) takeFailure(accountID string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err := s.failNext[accountID]
	delete(s.failNext, accountID)
	return err
}

func (s *Store) Activity() store.ActivityLog    { return s }
func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) RecordActivity(_ context.Context, accountID string, at int64) error {
	if err := s.takeFailure(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[accountID] = domain.ActivityRecord{AccountID: accountID, LastActivity: at}
	return nil
}

func (s *Store) Lookup(_ context.Context, accountID string) (domain.ActivityRecord, error) {
	if err := s.takeFailure(accountID); err != nil {
		return domain.ActivityRecord{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[accountID]
	if !ok {
		return domain.ActivityRecord{}, store.ErrNotFound
	}
	return rec, nil
}

func (s *Store) MarkWarned(_ context.Context, accountID string, lastActivity int64) error {
	if err := s.takeFailure(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[accountID]
	if !ok || rec.LastActivity != lastActivity {
		return store.ErrNotFound
	}
	rec.WarningSent = true
	s.records[accountID] = rec
	return nil
}

func (s *Store) RemoveAccount(_ context.Context, accountID string) error {
	if err := s.takeFailure(accountID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, accountID)
	return nil
}

func (s *Store) InactiveSince(_ context.Context, cutoff int64) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ActivityRecord
	for _, rec := range s.records {
		if rec.LastActivity < cutoff {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivity != out[j].LastActivity {
			return out[i].LastActivity < out[j].LastActivity
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out, nil
}
