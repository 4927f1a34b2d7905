package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/pkg/slogx"
	"github.com/aussiebroadwan/steward/pkg/throttle"
)

const (
	OnboardingCompleteText = "Thanks! Your profile is all set up :)"
	SetupButtonTitle       = "Done"
)

// Requirement is one profile field new members must fill in.
type Requirement struct {
	Label     string
	Satisfied func(domain.Profile) bool
}

// DefaultRequirements lists the profile fields in the order they are
// reported.
func DefaultRequirements() []Requirement {
	return []Requirement{
		{Label: "a cover photo", Satisfied: func(p domain.Profile) bool { return p.CoverURL != "" }},
		{Label: "a profile picture", Satisfied: func(p domain.Profile) bool { return !p.PictureIsSilhouette }},
		{Label: "a department", Satisfied: func(p domain.Profile) bool { return strings.TrimSpace(p.Department) != "" }},
		{Label: "a position", Satisfied: func(p domain.Profile) bool { return strings.TrimSpace(p.Title) != "" }},
		{Label: "a manager", Satisfied: func(p domain.Profile) bool { return len(p.ManagerIDs) > 0 }},
	}
}

// MissingFields returns the labels of unsatisfied requirements, in
// requirement order.
func MissingFields(p domain.Profile, reqs []Requirement) []string {
	var missing []string
	for _, r := range reqs {
		if !r.Satisfied(p) {
			missing = append(missing, r.Label)
		}
	}
	return missing
}

// JoinLabels joins labels as an English list: "x", "x and y",
// "x, y, and z".
func JoinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	case 2:
		return labels[0] + " and " + labels[1]
	default:
		return strings.Join(labels[:len(labels)-1], ", ") + ", and " + labels[len(labels)-1]
	}
}

// RenderMissing builds the reminder for a non-empty missing set.
func RenderMissing(missing []string) string {
	return "Your profile still needs " + JoinLabels(missing) + " :("
}

// OnboardingResult describes what Check found and did.
type OnboardingResult struct {
	Missing   []string
	Complete  bool
	Throttled bool // a reminder was due but the account is over its prompt budget
}

// OnboardingService checks new members' profiles and reminds them of what
// is missing.
type OnboardingService struct {
	Profiles     ProfileFetcher
	Messenger    Messenger
	Requirements []Requirement
	Audit        audit.Publisher

	// Prompts bounds reminders per account. Nil means unlimited.
	Prompts *throttle.KeyedLimiter
}

// Check fetches the account's profile and sends either a confirmation or
// one reminder listing every missing field.
func (s *OnboardingService) Check(ctx context.Context, accountID string) (OnboardingResult, error) {
	log := slogx.FromContext(ctx).With(slog.String("account_id", accountID))

	profile, err := s.Profiles.FetchProfile(ctx, accountID)
	if err != nil {
		observability.OnboardingCheck("error")
		log.Error("failed to fetch profile", slog.Any("error", err))
		return OnboardingResult{}, err
	}

	reqs := s.Requirements
	if reqs == nil {
		reqs = DefaultRequirements()
	}

	res := OnboardingResult{Missing: MissingFields(profile, reqs)}
	if len(res.Missing) == 0 {
		res.Complete = true
		observability.OnboardingCheck("complete")
		s.publishComplete(ctx, accountID, profile.Name)
		if err := s.Messenger.SendText(ctx, accountID, OnboardingCompleteText); err != nil {
			log.Error("failed to send onboarding confirmation", slog.Any("error", err))
			return res, err
		}
		return res, nil
	}

	if s.Prompts != nil && !s.Prompts.Allow(accountID) {
		res.Throttled = true
		observability.OnboardingCheck("throttled")
		log.Info("onboarding reminder throttled",
			slog.Any("missing", res.Missing),
			slog.Duration("retry_after", s.Prompts.RetryAfter(accountID)),
		)
		return res, nil
	}

	observability.OnboardingCheck("incomplete")
	if err := s.Messenger.SendButtonPrompt(ctx, accountID, RenderMissing(res.Missing), SetupButtonTitle, domain.SetupCompletedPayload); err != nil {
		log.Error("failed to send onboarding reminder", slog.Any("error", err))
		return res, err
	}
	log.Debug("onboarding reminder sent", slog.Any("missing", res.Missing))
	return res, nil
}

func (s *OnboardingService) publishComplete(ctx context.Context, accountID, name string) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.Publish(ctx, audit.Event{
		Type:        audit.TypeOnboardingComplete,
		AccountID:   accountID,
		AccountName: name,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		slogx.FromContext(ctx).Error("failed to publish onboarding event", slog.String("account_id", accountID), slog.Any("error", err))
	}
}
