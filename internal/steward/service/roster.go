package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

var (
	ErrRosterUnavailable = errors.New("roster unavailable")
	ErrRosterCursorLoop  = errors.New("roster cursor did not advance")
)

// RosterClient walks the paginated membership listing.
type RosterClient struct {
	Source RosterSource
}

// FetchAllAccounts returns every account in listing order, each id once. A
// page with no accounts ends the walk. Any failure discards what was
// collected.
func (c *RosterClient) FetchAllAccounts(ctx context.Context) ([]domain.Account, error) {
	log := slogx.FromContext(ctx)

	var (
		accounts []domain.Account
		cursor   string
		seen     = make(map[string]struct{})
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.Source.FetchRosterPage(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrRosterUnavailable, page, err)
		}
		if len(res.Accounts) == 0 {
			log.Debug("roster walk complete", slog.Int("pages", page), slog.Int("accounts", len(accounts)))
			return accounts, nil
		}
		for _, acc := range res.Accounts {
			// Listings that shift between pages can repeat a member.
			if _, dup := seen[acc.ID]; dup {
				log.Debug("duplicate roster entry skipped", slog.String("account_id", acc.ID), slog.Int("page", page))
				continue
			}
			seen[acc.ID] = struct{}{}
			accounts = append(accounts, acc)
		}

		switch {
		case res.NextCursor == "":
			// Requesting again without a cursor would restart from page one.
			log.Warn("roster page without cursor, ending walk", slog.Int("page", page))
			return accounts, nil
		case res.NextCursor == cursor:
			return nil, fmt.Errorf("%w: page %d: cursor %q", ErrRosterCursorLoop, page, cursor)
		}
		cursor = res.NextCursor
	}
}
