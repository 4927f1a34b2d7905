package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

const SetupPromptText = "Let me know once your profile is set up!"

// WelcomeService greets newly created or reactivated accounts.
type WelcomeService struct {
	Profiles  ProfileFetcher
	Messenger Messenger
	OrgName   string
	Messages  []string // sent after the greeting, in order
}

// Welcome sends the greeting, the configured messages and the setup prompt.
// Each message depends on the previous one arriving, so the first failed
// send ends the chain.
func (s *WelcomeService) Welcome(ctx context.Context, accountID string) error {
	log := slogx.FromContext(ctx).With(slog.String("account_id", accountID))

	name := "there"
	profile, err := s.Profiles.FetchProfile(ctx, accountID)
	switch {
	case err != nil:
		log.Warn("failed to fetch profile for greeting", slog.Any("error", err))
	case profile.FirstName != "":
		name = profile.FirstName
	case strings.TrimSpace(profile.Name) != "":
		name = strings.Fields(profile.Name)[0]
	}

	chain := make([]string, 0, len(s.Messages)+1)
	chain = append(chain, fmt.Sprintf("Hello %s, welcome to %s :)", name, s.OrgName))
	chain = append(chain, s.Messages...)

	for i, text := range chain {
		if err := s.Messenger.SendText(ctx, accountID, text); err != nil {
			log.Error("welcome chain interrupted", slog.Int("step", i), slog.Any("error", err))
			return fmt.Errorf("welcome step %d: %w", i, err)
		}
	}

	if err := s.Messenger.SendButtonPrompt(ctx, accountID, SetupPromptText, SetupButtonTitle, domain.SetupCompletedPayload); err != nil {
		log.Error("welcome chain interrupted", slog.Int("step", len(chain)), slog.Any("error", err))
		return fmt.Errorf("welcome setup prompt: %w", err)
	}

	log.Info("welcome sent", slog.Int("messages", len(chain)+1))
	return nil
}
