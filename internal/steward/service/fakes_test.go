package service

import (
	"context"
	"errors"
	"sync"

	"github.com/aussiebroadwan/steward/internal/steward/audit"
	"github.com/aussiebroadwan/steward/internal/steward/domain"
)

type sentMessage struct {
	To      string
	Text    string
	Button  string
	Payload string
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sentMessage
	failTo map[string]error
	failAt int // fail the nth send (1-based) when > 0
}

func (m *fakeMessenger) SendText(_ context.Context, accountID, text string) error {
	return m.record(sentMessage{To: accountID, Text: text})
}

func (m *fakeMessenger) SendButtonPrompt(_ context.Context, accountID, text, title, payload string) error {
	return m.record(sentMessage{To: accountID, Text: text, Button: title, Payload: payload})
}

func (m *fakeMessenger) record(msg sentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failTo[msg.To]; err != nil {
		return err
	}
	if m.failAt > 0 && len(m.sent)+1 == m.failAt {
		m.failAt = 0
		return errors.New("send failed")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMessenger) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

func (m *fakeMessenger) SentTo(id string) []sentMessage {
	var out []sentMessage
	for _, msg := range m.Sent() {
		if msg.To == id {
			out = append(out, msg)
		}
	}
	return out
}

type fakeProfiles struct {
	profiles map[string]domain.Profile
	err      error
	calls    int
}

func (f *fakeProfiles) FetchProfile(_ context.Context, accountID string) (domain.Profile, error) {
	f.calls++
	if f.err != nil {
		return domain.Profile{}, f.err
	}
	p, ok := f.profiles[accountID]
	if !ok {
		return domain.Profile{}, errors.New("no such profile")
	}
	return p, nil
}

// pagedRoster serves pages keyed by the cursor that requests them.
type pagedRoster struct {
	pages    map[string]domain.RosterPage
	failOn   string
	err      error
	requests []string
}

func (r *pagedRoster) FetchRosterPage(_ context.Context, cursor string) (domain.RosterPage, error) {
	r.requests = append(r.requests, cursor)
	if r.err != nil && cursor == r.failOn {
		return domain.RosterPage{}, r.err
	}
	return r.pages[cursor], nil
}

func singlePage(accounts ...domain.Account) *pagedRoster {
	return &pagedRoster{pages: map[string]domain.RosterPage{
		"":    {Accounts: accounts, NextCursor: "end"},
		"end": {},
	}}
}

type fakeAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *fakeAudit) Publish(_ context.Context, events ...audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, events...)
	return nil
}

func (a *fakeAudit) Close() error { return nil }

type recordingDeactivator struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDeactivator) Deactivate(_ context.Context, acc domain.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, acc.ID)
	return nil
}
