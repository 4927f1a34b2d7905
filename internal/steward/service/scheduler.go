package service

import (
	"context"
	"log/slog"
	"time"
)

// InactivityChecker runs one sweep.
type InactivityChecker interface {
	Check(ctx context.Context, trigger string) (Report, error)
}

// InactivityScheduler runs sweeps one at a time on a background worker,
// periodically and on demand.
type InactivityScheduler struct {
	Checker  InactivityChecker
	Logger   *slog.Logger
	Interval time.Duration // zero disables periodic sweeps

	triggerCh chan string
	ctx       context.Context
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewInactivityScheduler creates a scheduler. ctx becomes the parent of
// every sweep context; Stop cancels it.
func NewInactivityScheduler(ctx context.Context, checker InactivityChecker, logger *slog.Logger, interval time.Duration) *InactivityScheduler {
	if interval < 0 {
		interval = 0
	}
	ctx, cancel := context.WithCancel(ctx)

	return &InactivityScheduler{
		Checker:   checker,
		Logger:    logger,
		Interval:  interval,
		triggerCh: make(chan string, 1),
		ctx:       ctx,
		cancel:    cancel,
		doneCh:    make(chan struct{}),
	}
}

// Start launches the worker. It does not block.
func (s *InactivityScheduler) Start() {
	go s.run()
	s.Logger.Info("inactivity scheduler started", "interval", s.Interval)
}

// Stop cancels any running sweep and waits for the worker to exit.
func (s *InactivityScheduler) Stop() {
	s.cancel()
	<-s.doneCh
	s.Logger.Info("inactivity scheduler stopped")
}

// Trigger queues an on-demand sweep. It reports false when a sweep is
// already queued, in which case the request is folded into that one.
func (s *InactivityScheduler) Trigger(requestedBy string) bool {
	select {
	case s.triggerCh <- requestedBy:
		return true
	default:
		s.Logger.Debug("inactivity sweep already queued", "requested_by", requestedBy)
		return false
	}
}

func (s *InactivityScheduler) run() {
	defer close(s.doneCh)

	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case requestedBy := <-s.triggerCh:
			s.Logger.Info("running requested inactivity sweep", "requested_by", requestedBy)
			s.sweep(TriggerAdmin)
		case <-tick:
			s.sweep(TriggerSchedule)
		}
	}
}

func (s *InactivityScheduler) sweep(trigger string) {
	if _, err := s.Checker.Check(s.ctx, trigger); err != nil {
		s.Logger.Error("inactivity sweep failed", "trigger", trigger, "error", err)
	}
}
