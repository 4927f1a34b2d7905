// Package platform adapts the Workplace Graph client to the service ports.
package platform

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/pkg/slogx"
	"github.com/aussiebroadwan/steward/pkg/workplace"
)

// Graph is the subset of *workplace.Client the adapter needs.
type Graph interface {
	SendText(ctx context.Context, recipientID, text string) (workplace.SendResult, error)
	SendButtonPrompt(ctx context.Context, recipientID, text, label, payload string) (workplace.SendResult, error)
	FetchProfile(ctx context.Context, memberID string) (workplace.Profile, error)
	FetchMembersPage(ctx context.Context, cursor string) (workplace.MembersPage, error)
}

// Adapter implements service.Messenger, service.ProfileFetcher and
// service.RosterSource.
type Adapter struct {
	Graph Graph
}

func New(g Graph) *Adapter { return &Adapter{Graph: g} }

func (a *Adapter) SendText(ctx context.Context, accountID, text string) error {
	res, err := a.Graph.SendText(ctx, accountID, text)
	return observe(ctx, "send_text", accountID, res, err)
}

func (a *Adapter) SendButtonPrompt(ctx context.Context, accountID, text, buttonTitle, payload string) error {
	res, err := a.Graph.SendButtonPrompt(ctx, accountID, text, buttonTitle, payload)
	return observe(ctx, "send_button", accountID, res, err)
}

func (a *Adapter) FetchProfile(ctx context.Context, accountID string) (domain.Profile, error) {
	p, err := a.Graph.FetchProfile(ctx, accountID)
	if err != nil {
		recordError(ctx, "fetch_profile", err)
		return domain.Profile{}, err
	}
	return domain.Profile{
		ID:                  p.ID,
		Name:                p.Name,
		FirstName:           p.FirstName,
		CoverURL:            p.CoverURL,
		PictureIsSilhouette: p.PictureIsSilhouette,
		Department:          p.Department,
		Title:               p.Title,
		ManagerIDs:          p.ManagerIDs,
	}, nil
}

func (a *Adapter) FetchRosterPage(ctx context.Context, cursor string) (domain.RosterPage, error) {
	page, err := a.Graph.FetchMembersPage(ctx, cursor)
	if err != nil {
		recordError(ctx, "fetch_members", err)
		return domain.RosterPage{}, err
	}

	accounts := make([]domain.Account, 0, len(page.Members))
	for _, m := range page.Members {
		accounts = append(accounts, domain.Account{ID: m.ID, Name: m.Name})
	}
	return domain.RosterPage{Accounts: accounts, NextCursor: page.NextCursor}, nil
}

func observe(ctx context.Context, op, recipient string, res workplace.SendResult, err error) error {
	if err != nil {
		recordError(ctx, op, err)
		return err
	}
	slogx.FromContext(ctx).Debug("message sent",
		slog.String("recipient", recipient),
		slog.String("message_id", res.MessageID),
	)
	return nil
}

func recordError(ctx context.Context, op string, err error) {
	kind := workplace.Kind(err)
	observability.PlatformError(op, kind)
	slogx.FromContext(ctx).Warn("graph call failed",
		slog.String("op", op),
		slog.String("kind", kind),
		slog.Any("error", err),
	)
}
