package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type activityRepo struct {
	pool *pgxpool.Pool

	upsert        string
	lookup        string
	markWarned    string
	remove        string
	inactiveSince string
}

func newActivityRepo(pool *pgxpool.Pool, table string) *activityRepo {
	return &activityRepo{
		pool: pool,
		upsert: fmt.Sprintf(`INSERT INTO %s (account_id, last_activity, warning_sent, updated_at)
VALUES ($1, $2, FALSE, now())
ON CONFLICT (account_id) DO UPDATE SET
    last_activity = EXCLUDED.last_activity,
    warning_sent = FALSE,
    updated_at = now()`, table),
		lookup: fmt.Sprintf(`SELECT account_id, last_activity, warning_sent FROM %s WHERE account_id = $1`, table),
		markWarned: fmt.Sprintf(`UPDATE %s SET warning_sent = TRUE, updated_at = now()
WHERE account_id = $1 AND last_activity = $2`, table),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE account_id = $1`, table),
		inactiveSince: fmt.Sprintf(`SELECT account_id, last_activity, warning_sent FROM %s
WHERE last_activity < $1 ORDER BY last_activity ASC, account_id ASC`, table),
	}
}

func (r *activityRepo) RecordActivity(ctx context.Context, accountID string, at int64) error {
	_, err := r.pool.Exec(ctx, r.upsert, accountID, at)
	return err
}

func (r *activityRepo) Lookup(ctx context.Context, accountID string) (domain.ActivityRecord, error) {
	var rec domain.ActivityRecord
	err := r.pool.QueryRow(ctx, r.lookup, accountID).Scan(&rec.AccountID, &rec.LastActivity, &rec.WarningSent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActivityRecord{}, store.ErrNotFound
		}
		return domain.ActivityRecord{}, err
	}
	return rec, nil
}

func (r *activityRepo) MarkWarned(ctx context.Context, accountID string, lastActivity int64) error {
	tag, err := r.pool.Exec(ctx, r.markWarned, accountID, lastActivity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *activityRepo) RemoveAccount(ctx context.Context, accountID string) error {
	_, err := r.pool.Exec(ctx, r.remove, accountID)
	return err
}

func (r *activityRepo) InactiveSince(ctx context.Context, cutoff int64) ([]domain.ActivityRecord, error) {
	rows, err := r.pool.Query(ctx, r.inactiveSince, cutoff)
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
