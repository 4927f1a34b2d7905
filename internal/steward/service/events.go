package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/pkg/slogx"
)

var ErrMalformedEvent = errors.New("malformed event")

const (
	DefaultInactivityCommand = "check inactivity"

	// AnyMessageCommand makes every admin message trigger a sweep.
	AnyMessageCommand = "*"
)

// Interfaces the router dispatches to.
type (
	SweepTrigger interface {
		Trigger(requestedBy string) bool
	}
	OnboardingChecker interface {
		Check(ctx context.Context, accountID string) (OnboardingResult, error)
	}
	Welcomer interface {
		Welcome(ctx context.Context, accountID string) error
	}
)

// EventRouter turns webhook payloads into ledger updates and policy runs.
type EventRouter struct {
	Ledger     *ActivityLedger
	Onboarding OnboardingChecker
	Welcome    Welcomer
	Sweeps     SweepTrigger
	Messenger  Messenger

	Admins  map[string]struct{}
	Command string
	Now     func() time.Time

	wg sync.WaitGroup
}

// Dispatch routes p on a background goroutine detached from ctx's
// cancellation, so a webhook can be acknowledged before the work is done.
func (r *EventRouter) Dispatch(ctx context.Context, p domain.Payload) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Route(ctx, p)
	}()
}

// Wait blocks until every dispatched payload has been routed.
func (r *EventRouter) Wait() { r.wg.Wait() }

// Route handles every entry of p. Problems with one event are logged and
// never stop the others.
func (r *EventRouter) Route(ctx context.Context, p domain.Payload) {
	ctx, _ = slogx.With(ctx, slog.String("object", p.Object))

	for _, entry := range p.Entry {
		switch p.Object {
		case domain.ObjectPage:
			r.routeMessaging(ctx, entry)
		case domain.ObjectWorkplaceSecurity:
			r.routeSecurity(ctx, entry)
		default:
			r.routeActivity(ctx, p.Object, entry)
		}
	}
}

func (r *EventRouter) routeMessaging(ctx context.Context, entry domain.Entry) {
	for _, ev := range entry.Messaging {
		sender := ev.Sender.ID
		switch {
		case sender == "":
			r.drop(ctx, "no_sender", fmt.Errorf("%w: messaging event without sender", ErrMalformedEvent))

		case ev.Postback != nil:
			if ev.Postback.Payload != domain.SetupCompletedPayload {
				r.drop(ctx, "unknown_postback", fmt.Errorf("%w: postback payload %q", ErrMalformedEvent, ev.Postback.Payload))
				continue
			}
			observability.EventRouted(domain.ObjectPage, "postback")
			r.checkOnboarding(ctx, sender)

		case ev.Message != nil:
			if ev.Message.IsEcho {
				observability.EventDropped("echo")
				continue
			}
			observability.EventRouted(domain.ObjectPage, "message")
			if r.isAdmin(sender) {
				r.handleAdminMessage(ctx, sender, ev.Message.Text)
				continue
			}
			r.checkOnboarding(ctx, sender)

		default:
			r.drop(ctx, "empty_messaging", fmt.Errorf("%w: messaging event without message or postback", ErrMalformedEvent))
		}
	}
}

func (r *EventRouter) handleAdminMessage(ctx context.Context, adminID, text string) {
	log := slogx.FromContext(ctx)

	var reply string
	switch {
	case !r.isCommand(text):
		reply = fmt.Sprintf("Send %q to run an inactivity check.", r.command())
	case r.Sweeps.Trigger(adminID):
		log.Info("inactivity sweep requested", slog.String("admin_id", adminID))
		reply = "Inactivity check started. I'll message you about any account I act on."
	default:
		reply = "An inactivity check is already queued."
	}

	if err := r.Messenger.SendText(ctx, adminID, reply); err != nil {
		log.Error("failed to reply to admin", slog.String("admin_id", adminID), slog.Any("error", err))
	}
}

func (r *EventRouter) checkOnboarding(ctx context.Context, accountID string) {
	// Errors are logged by the onboarding service.
	_, _ = r.Onboarding.Check(ctx, accountID)
}

func (r *EventRouter) routeSecurity(ctx context.Context, entry domain.Entry) {
	for _, change := range entry.Changes {
		var sc domain.SecurityChange
		if err := json.Unmarshal(change.Value, &sc); err != nil {
			r.drop(ctx, "decode", fmt.Errorf("%w: %s value: %w", ErrMalformedEvent, change.Field, err))
			continue
		}

		switch {
		case change.Field == domain.FieldSessions && sc.Event == domain.EventLogIn:
			observability.EventRouted(domain.ObjectWorkplaceSecurity, change.Field)
			r.recordActivity(ctx, sc.Subject(), entry.Time)

		case change.Field == domain.FieldAdminActivity &&
			(sc.Event == domain.EventAdminCreateAccount || sc.Event == domain.EventAdminActivateAccount):
			if sc.TargetID == "" {
				r.drop(ctx, "no_target", fmt.Errorf("%w: %s without target_id", ErrMalformedEvent, sc.Event))
				continue
			}
			observability.EventRouted(domain.ObjectWorkplaceSecurity, change.Field)
			slogx.FromContext(ctx).Info("account activated, sending welcome",
				slog.String("event", sc.Event),
				slog.String("account_id", sc.TargetID),
			)
			// Errors are logged by the welcome service.
			_ = r.Welcome.Welcome(ctx, sc.TargetID)

		default:
			observability.EventDropped("unhandled_security_event")
			slogx.FromContext(ctx).Debug("ignoring security event",
				slog.String("field", change.Field),
				slog.String("event", sc.Event),
			)
		}
	}
}

func (r *EventRouter) routeActivity(ctx context.Context, object string, entry domain.Entry) {
	for _, change := range entry.Changes {
		switch change.Field {
		case domain.FieldPosts, domain.FieldComments, domain.FieldEvents, domain.FieldReactions:
		default:
			r.drop(ctx, "unknown_field", fmt.Errorf("%w: field %q on %q", ErrMalformedEvent, change.Field, object))
			continue
		}

		var ac domain.ActivityChange
		if err := json.Unmarshal(change.Value, &ac); err != nil {
			r.drop(ctx, "decode", fmt.Errorf("%w: %s value: %w", ErrMalformedEvent, change.Field, err))
			continue
		}
		observability.EventRouted(object, change.Field)
		r.recordActivity(ctx, ac.Actor(), entry.Time)
	}
}

func (r *EventRouter) recordActivity(ctx context.Context, accountID string, at int64) {
	log := slogx.FromContext(ctx)
	if accountID == "" {
		r.drop(ctx, "no_actor", fmt.Errorf("%w: activity without an account", ErrMalformedEvent))
		return
	}
	if at == 0 {
		at = r.now().Unix()
	}

	if err := r.Ledger.RecordActivity(ctx, accountID, at); err != nil {
		log.Error("failed to record activity",
			slog.String("account_id", accountID),
			slog.Int64("at", at),
			slog.Any("error", err),
		)
		return
	}
	log.Debug("activity recorded", slog.String("account_id", accountID), slog.Int64("at", at))
}

func (r *EventRouter) drop(ctx context.Context, reason string, err error) {
	observability.EventDropped(reason)
	slogx.FromContext(ctx).Warn("dropping webhook event", slog.String("reason", reason), slog.Any("error", err))
}

func (r *EventRouter) isAdmin(id string) bool {
	_, ok := r.Admins[id]
	return ok
}

func (r *EventRouter) isCommand(text string) bool {
	cmd := r.command()
	return cmd == AnyMessageCommand || strings.EqualFold(strings.TrimSpace(text), cmd)
}

func (r *EventRouter) command() string {
	if c := strings.TrimSpace(r.Command); c != "" {
		return c
	}
	return DefaultInactivityCommand
}

func (r *EventRouter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// AdminSet builds the lookup set the router expects.
func AdminSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
