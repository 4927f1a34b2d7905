package domain

import "time"

// ActivityRecord is the ledger entry for one account.
type ActivityRecord struct {
	AccountID    string
	LastActivity int64 // epoch seconds
	WarningSent  bool
}

// Elapsed returns how long ago the last activity was, as seen from now.
func (r ActivityRecord) Elapsed(now time.Time) time.Duration {
	return now.Sub(time.Unix(r.LastActivity, 0))
}
