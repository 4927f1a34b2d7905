package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/store"
)

type activityRepo struct {
	db *sql.DB

	upsert        string
	lookup        string
	markWarned    string
	remove        string
	inactiveSince string
}

func newActivityRepo(db *sql.DB, table string) *activityRepo {
	return &activityRepo{
		db: db,
		upsert: fmt.Sprintf(`INSERT INTO %s (account_id, last_activity, warning_sent, updated_at)
VALUES (?, ?, 0, CURRENT_TIMESTAMP)
ON CONFLICT (account_id) DO UPDATE SET
    last_activity = excluded.last_activity,
    warning_sent = 0,
    updated_at = CURRENT_TIMESTAMP`, table),
		lookup: fmt.Sprintf(`SELECT account_id, last_activity, warning_sent FROM %s WHERE account_id = ?`, table),
		markWarned: fmt.Sprintf(`UPDATE %s SET warning_sent = 1, updated_at = CURRENT_TIMESTAMP
WHERE account_id = ? AND last_activity = ?`, table),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE account_id = ?`, table),
		inactiveSince: fmt.Sprintf(`SELECT account_id, last_activity, warning_sent FROM %s
WHERE last_activity < ? ORDER BY last_activity ASC, account_id ASC`, table),
	}
}

func (r *activityRepo) RecordActivity(ctx context.Context, accountID string, at int64) error {
	_, err := r.db.ExecContext(ctx, r.upsert, accountID, at)
	return err
}

func (r *activityRepo) Lookup(ctx context.Context, accountID string) (domain.ActivityRecord, error) {
	var rec domain.ActivityRecord
	err := r.db.QueryRowContext(ctx, r.lookup, accountID).Scan(&rec.AccountID, &rec.LastActivity, &rec.WarningSent)
	if err != nil {
		return domain.ActivityRecord{}, mapNotFound(err)
	}
	return rec, nil
}

func (r *activityRepo) MarkWarned(ctx context.Context, accountID string, lastActivity int64) error {
	res, err := r.db.ExecContext(ctx, r.markWarned, accountID, lastActivity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *activityRepo) RemoveAccount(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx, r.remove, accountID)
	return err
}

func (r *activityRepo) InactiveSince(ctx context.Context, cutoff int64) ([]domain.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, r.inactiveSince, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ActivityRecord
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.AccountID, &rec.LastActivity, &rec.WarningSent); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
