// Package observability owns the Prometheus collectors exported on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	eventsRouted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "webhook",
		Name:      "events_routed_total",
		Help:      "Webhook changes and messaging events handled, by object and field.",
	}, []string{"object", "field"})

	eventsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "webhook",
		Name:      "events_dropped_total",
		Help:      "Webhook events dropped without action, by reason.",
	}, []string{"reason"})

	sweeps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "inactivity",
		Name:      "sweeps_total",
		Help:      "Inactivity sweeps by trigger and result.",
	}, []string{"trigger", "result"})

	sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "steward",
		Subsystem: "inactivity",
		Name:      "sweep_duration_seconds",
		Help:      "Wall time of completed inactivity sweeps.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	lastSweep = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steward",
		Subsystem: "inactivity",
		Name:      "last_sweep_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed inactivity sweep.",
	})

	enforcementActions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "inactivity",
		Name:      "actions_total",
		Help:      "Accounts warned or deactivated.",
	}, []string{"action"})

	ledgerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "ledger",
		Name:      "errors_total",
		Help:      "Activity ledger operation failures, by operation.",
	}, []string{"op"})

	orphanedRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "steward",
		Subsystem: "ledger",
		Name:      "orphaned_records",
		Help:      "Ledger records past the warn threshold whose account is no longer in the roster.",
	})

	onboardingChecks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "onboarding",
		Name:      "checks_total",
		Help:      "Onboarding profile checks by outcome.",
	}, []string{"outcome"})

	platformErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "steward",
		Subsystem: "platform",
		Name:      "errors_total",
		Help:      "Failed Graph API calls by operation and error kind.",
	}, []string{"op", "kind"})
)

func init() {
	prometheus.MustRegister(
		eventsRouted, eventsDropped,
		sweeps, sweepDuration, lastSweep, enforcementActions,
		ledgerErrors, orphanedRecords,
		onboardingChecks, platformErrors,
	)
}

func EventRouted(object, field string) { eventsRouted.WithLabelValues(object, field).Inc() }

func EventDropped(reason string) { eventsDropped.WithLabelValues(reason).Inc() }

// SweepFinished records one sweep. Only successful sweeps move the
// watermark and the duration histogram.
func SweepFinished(trigger string, started time.Time, err error) {
	if err != nil {
		sweeps.WithLabelValues(trigger, "error").Inc()
		return
	}
	sweeps.WithLabelValues(trigger, "ok").Inc()
	sweepDuration.Observe(time.Since(started).Seconds())
	lastSweep.Set(float64(time.Now().Unix()))
}

func EnforcementAction(action string) { enforcementActions.WithLabelValues(action).Inc() }

func LedgerError(op string) { ledgerErrors.WithLabelValues(op).Inc() }

func OrphanedRecords(n int) { orphanedRecords.Set(float64(n)) }

func OnboardingCheck(outcome string) { onboardingChecks.WithLabelValues(outcome).Inc() }

func PlatformError(op, kind string) { platformErrors.WithLabelValues(op, kind).Inc() }
