package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

// Messenger sends direct messages to accounts.
type Messenger interface {
	SendText(ctx context.Context, accountID, text string) error
	SendButtonPrompt(ctx context.Context, accountID, text, buttonTitle, payload string) error
}

// ProfileFetcher loads the fields onboarding inspects.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accountID string) (domain.Profile, error)
}

// RosterSource returns one page of the organization membership. An empty
// cursor requests the first page.
type RosterSource interface {
	FetchRosterPage(ctx context.Context, cursor string) (domain.RosterPage, error)
}

// Deactivator removes platform access for an account.
type Deactivator interface {
	Deactivate(ctx context.Context, account domain.Account) error
}

// LogDeactivator only records that a deactivation was requested. The
// platform offers no deactivation call for bots, so admins act on the
// notification.
type LogDeactivator struct{}

func (LogDeactivator) Deactivate(ctx context.Context, account domain.Account) error {
	slogx.FromContext(ctx).Warn("account deactivation requested",
		slog.String("account_id", account.ID),
		slog.String("account_name", account.Name),
	)
	return nil
}
