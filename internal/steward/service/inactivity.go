package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/observability"
	"github.com/aussiebroadwan/steward/pkg/idx"
	"github.com/aussiebroadwan/steward/pkg/slogx"
	"github.com/aussiebroadwan/steward/pkg/workplace"
)

const (
	DefaultWarnAfter       = 30 * 24 * time.Hour
	DefaultDeactivateAfter = 45 * 24 * time.Hour
	DefaultConcurrency     = 8

	// finishTimeout bounds the notifications that follow the ledger writes
	// of a sweep that was cancelled midway.
	finishTimeout = 30 * time.Second
)

// Sweep triggers.
const (
	TriggerAdmin    = "admin"
	TriggerSchedule = "schedule"
)

// Decision is what the policy wants done with one account.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionWarn
	DecisionDeactivate
)

func (d Decision) String() string {
	switch d {
	case DecisionWarn:
		return "warn"
	case DecisionDeactivate:
		return "deactivate"
	default:
		return "none"
	}
}

// Thresholds are the inactivity limits. Both bounds are exclusive: an
// account inactive for exactly WarnAfter is still active.
type Thresholds struct {
	WarnAfter       time.Duration
	DeactivateAfter time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{WarnAfter: DefaultWarnAfter, DeactivateAfter: DefaultDeactivateAfter}
}

// Decide applies the policy to one record. An account is always warned
// before it can be deactivated, however long it has been idle.
func (t Thresholds) Decide(rec domain.ActivityRecord, now time.Time) Decision {
	elapsed := rec.Elapsed(now)
	switch {
	case !rec.WarningSent && elapsed > t.WarnAfter:
		return DecisionWarn
	case rec.WarningSent && elapsed > t.DeactivateAfter:
		return DecisionDeactivate
	default:
		return DecisionNone
	}
}

// Report summarizes one sweep.
type Report struct {
	SweepID     string
	Trigger     string
	Accounts    int
	Untracked   int
	Warned      []domain.Account
	Deactivated []domain.Account
	Failed      []string // account ids whose ledger update failed
	Orphaned    int      // ledger records past the warn threshold missing from the roster
}

// InactivityService sweeps the roster and enforces the inactivity policy.
type InactivityService struct {
	Roster      *RosterClient
	Ledger      *ActivityLedger
	Messenger   Messenger
	Deactivator Deactivator
	Audit       audit.Publisher

	Admins      []string
	Operators   []string // receive sweep failure alerts, defaults to Admins
	Thresholds  Thresholds
	Concurrency int
	Now         func() time.Time
}

type outcome struct {
	account  domain.Account
	record   domain.ActivityRecord
	decision Decision
	tracked  bool
	err      error
}

// Check runs one full sweep. It fails only when the roster cannot be
// listed; per-account failures are logged and reported.
func (s *InactivityService) Check(ctx context.Context, trigger string) (Report, error) {
	started := time.Now()
	report := Report{SweepID: idx.New().String(), Trigger: trigger}
	ctx, log := slogx.With(ctx, slog.String("sweep_id", report.SweepID), slog.String("trigger", trigger))

	log.Info("inactivity sweep started")

	accounts, err := s.Roster.FetchAllAccounts(ctx)
	if err != nil {
		log.Error("inactivity sweep aborted", slog.Any("error", err))
		observability.SweepFinished(trigger, started, err)
		if ctx.Err() != nil {
			return report, err
		}
		s.alertOperators(ctx, fmt.Sprintf(
			"Inactivity check %s aborted: the member list could not be loaded (%s).",
			report.SweepID, rosterFailureReason(err)))
		return report, err
	}
	report.Accounts = len(accounts)

	now := s.now()
	outcomes := s.evaluate(ctx, accounts, now)

	// Every warn or deactivate decision in outcomes is already committed to
	// the ledger, so it is announced even when the sweep was cancelled.
	cancelErr := ctx.Err()
	if cancelErr != nil {
		log.Warn("inactivity sweep cancelled, announcing applied decisions", slog.Any("error", cancelErr))
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	slices.SortFunc(outcomes, func(a, b outcome) int { return strings.Compare(a.account.ID, b.account.ID) })

	var events []audit.Event
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			report.Failed = append(report.Failed, o.account.ID)
		case !o.tracked:
			report.Untracked++
		case o.decision == DecisionWarn:
			report.Warned = append(report.Warned, o.account)
			observability.EnforcementAction("warn")
			s.notifyAdmins(ctx, s.warningText(o.account, now.Sub(time.Unix(o.record.LastActivity, 0))))
			events = append(events, s.auditEvent(audit.TypeAccountWarned, report.SweepID, o, now))
		case o.decision == DecisionDeactivate:
			report.Deactivated = append(report.Deactivated, o.account)
			observability.EnforcementAction("deactivate")
			s.notifyAdmins(ctx, s.deactivationText(o.account))
			if err := s.deactivator().Deactivate(ctx, o.account); err != nil {
				log.Error("deactivation failed", slog.String("account_id", o.account.ID), slog.Any("error", err))
			}
			events = append(events, s.auditEvent(audit.TypeAccountDeactivated, report.SweepID, o, now))
		}
	}

	if s.Audit != nil && len(events) > 0 {
		if err := s.Audit.Publish(ctx, events...); err != nil {
			log.Error("failed to publish audit events", slog.Int("events", len(events)), slog.Any("error", err))
		}
	}

	if cancelErr != nil {
		observability.SweepFinished(trigger, started, cancelErr)
		return report, cancelErr
	}

	report.Orphaned = s.countOrphans(ctx, accounts, now)

	log.Info("inactivity sweep completed",
		slog.Int("accounts", report.Accounts),
		slog.Int("untracked", report.Untracked),
		slog.Int("warned", len(report.Warned)),
		slog.Int("deactivated", len(report.Deactivated)),
		slog.Int("failed", len(report.Failed)),
		slog.Int("orphaned", report.Orphaned),
		slog.Duration("took", time.Since(started)),
	)
	observability.SweepFinished(trigger, started, nil)
	return report, nil
}

// evaluate applies the policy to every account in parallel. Results keep
// the roster order; ledger writes happen here, notifications do not.
func (s *InactivityService) evaluate(ctx context.Context, accounts []domain.Account, now time.Time) []outcome {
	outcomes := make([]outcome, len(accounts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, acc := range accounts {
		g.Go(func() error {
			outcomes[i] = s.evaluateAccount(gctx, acc, now)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (s *InactivityService) evaluateAccount(ctx context.Context, acc domain.Account, now time.Time) outcome {
	log := slogx.FromContext(ctx).With(slog.String("account_id", acc.ID))
	out := outcome{account: acc}

	if err := ctx.Err(); err != nil {
		out.err = err
		return out
	}

	out.err = s.Ledger.withRecord(ctx, acc.ID, func(rec domain.ActivityRecord, found bool) error {
		if !found {
			return nil
		}
		out.tracked = true
		out.record = rec
		out.decision = s.Thresholds.Decide(rec, now)

		switch out.decision {
		case DecisionWarn:
			if err := s.Ledger.Log.MarkWarned(ctx, acc.ID, rec.LastActivity); err != nil {
				observability.LedgerError("mark_warned")
				return fmt.Errorf("mark warned: %w", err)
			}
		case DecisionDeactivate:
			if err := s.Ledger.Log.RemoveAccount(ctx, acc.ID); err != nil {
				observability.LedgerError("remove_account")
				return fmt.Errorf("remove account: %w", err)
			}
		}
		return nil
	})

	switch {
	case out.err != nil:
		log.Error("failed to evaluate account", slog.Any("error", out.err))
	case !out.tracked:
		log.Debug("account has no recorded activity, skipping")
	case out.decision != DecisionNone:
		log.Info("inactivity policy applied",
			slog.String("decision", out.decision.String()),
			slog.Int64("last_activity", out.record.LastActivity),
		)
	}
	return out
}

// countOrphans logs ledger records that are past the warn threshold but no
// longer listed in the roster. They are never enforced and only reported.
func (s *InactivityService) countOrphans(ctx context.Context, accounts []domain.Account, now time.Time) int {
	log := slogx.FromContext(ctx)

	recs, err := s.Ledger.InactiveSince(ctx, now.Add(-s.Thresholds.WarnAfter).Unix())
	if err != nil {
		log.Warn("failed to list stale ledger records", slog.Any("error", err))
		return 0
	}

	listed := make(map[string]struct{}, len(accounts))
	for _, a := range accounts {
		listed[a.ID] = struct{}{}
	}

	var orphans []string
	for _, rec := range recs {
		if _, ok := listed[rec.AccountID]; !ok {
			orphans = append(orphans, rec.AccountID)
		}
	}
	if len(orphans) > 0 {
		log.Info("stale ledger records for accounts missing from roster",
			slog.Int("count", len(orphans)),
			slog.Any("account_ids", orphans),
		)
	}
	observability.OrphanedRecords(len(orphans))
	return len(orphans)
}

func (s *InactivityService) notifyAdmins(ctx context.Context, text string) {
	notify(ctx, s.Messenger, s.Admins, text)
}

func (s *InactivityService) alertOperators(ctx context.Context, text string) {
	ops := s.Operators
	if len(ops) == 0 {
		ops = s.Admins
	}
	notify(ctx, s.Messenger, ops, text)
}

// notify sends text to each recipient in turn. A failed send is logged and
// the remaining recipients still get the message.
func notify(ctx context.Context, m Messenger, recipients []string, text string) {
	for _, id := range recipients {
		if err := m.SendText(ctx, id, text); err != nil {
			slogx.FromContext(ctx).Error("failed to notify",
				slog.String("recipient", id),
				slog.Any("error", err),
			)
		}
	}
}

func (s *InactivityService) warningText(acc domain.Account, elapsed time.Duration) string {
	return fmt.Sprintf(
		"%s has not been active for %d days. They will be deactivated once they pass %d days of inactivity.",
		acc.Label(), days(elapsed), days(s.Thresholds.DeactivateAfter))
}

func (s *InactivityService) deactivationText(acc domain.Account) string {
	return fmt.Sprintf(
		"%s has been inactive for more than %d days and is being deactivated.",
		acc.Label(), days(s.Thresholds.DeactivateAfter))
}

func (s *InactivityService) auditEvent(typ, sweepID string, o outcome, now time.Time) audit.Event {
	return audit.Event{
		Type:         typ,
		AccountID:    o.account.ID,
		AccountName:  o.account.Name,
		LastActivity: o.record.LastActivity,
		SweepID:      sweepID,
		OccurredAt:   now.UTC(),
	}
}

func (s *InactivityService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *InactivityService) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return DefaultConcurrency
}

func (s *InactivityService) deactivator() Deactivator {
	if s.Deactivator != nil {
		return s.Deactivator
	}
	return LogDeactivator{}
}

func rosterFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrRosterCursorLoop):
		return "pagination did not advance"
	case workplace.Kind(err) == workplace.KindTimeout:
		return "request timed out"
	case workplace.Kind(err) == workplace.KindAPI:
		return "the platform rejected the request"
	default:
		return "network error"
	}
}

func days(d time.Duration) int { return int(d / (24 * time.Hour)) }
