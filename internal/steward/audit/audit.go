// Package audit publishes enforcement decisions so other systems (HR
// tooling, dashboards) can follow what the bot did.
package audit

import (
	"context"
	"time"
)

// Event types.
const (
	TypeAccountWarned      = "account.warned"
	TypeAccountDeactivated = "account.deactivated"
	TypeOnboardingComplete = "onboarding.completed"
)

// Event is one enforcement decision.
type Event struct {
	Type         string    `json:"type"`
	AccountID    string    `json:"account_id"`
	AccountName  string    `json:"account_name,omitempty"`
	LastActivity int64     `json:"last_activity,omitempty"`
	SweepID      string    `json:"sweep_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }
func (Nop) Close() error                            { return nil }
