package platform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aussiebroadwan/steward/internal/steward/domain"
	"github.com/aussiebroadwan/steward/internal/steward/platform"
	"github.com/aussiebroadwan/steward/pkg/workplace"
	"github.com/stretchr/testify/require"
)

type stubGraph struct {
	pages   map[string]workplace.MembersPage
	profile workplace.Profile
	err     error
	sent    []string
}

func (g *stubGraph) SendText(_ context.Context, recipientID, text string) (workplace.SendResult, error) {
	if g.err != nil {
		return workplace.SendResult{}, g.err
	}
	g.sent = append(g.sent, recipientID+":"+text)
	return workplace.SendResult{RecipientID: recipientID, MessageID: "mid.1"}, nil
}

func (g *stubGraph) SendButtonPrompt(_ context.Context, recipientID, text, label, payload string) (workplace.SendResult, error) {
	if g.err != nil {
		return workplace.SendResult{}, g.err
	}
	g.sent = append(g.sent, recipientID+":"+text+"["+label+"="+payload+"]")
	return workplace.SendResult{RecipientID: recipientID}, nil
}

func (g *stubGraph) FetchProfile(context.Context, string) (workplace.Profile, error) {
	return g.profile, g.err
}

func (g *stubGraph) FetchMembersPage(_ context.Context, cursor string) (workplace.MembersPage, error) {
	if g.err != nil {
		return workplace.MembersPage{}, g.err
	}
	return g.pages[cursor], nil
}

func TestAdapterMapsRosterPages(t *testing.T) {
	g := &stubGraph{pages: map[string]workplace.MembersPage{
		"": {Members: []workplace.Member{{ID: "1", Name: "A"}, {ID: "2"}}, NextCursor: "c"},
	}}
	a := platform.New(g)

	page, err := a.FetchRosterPage(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, domain.RosterPage{
		Accounts:   []domain.Account{{ID: "1", Name: "A"}, {ID: "2"}},
		NextCursor: "c",
	}, page)

	empty, err := a.FetchRosterPage(context.Background(), "c")
	require.NoError(t, err)
	require.Empty(t, empty.Accounts)
	require.Empty(t, empty.NextCursor)
}

func TestAdapterMapsProfile(t *testing.T) {
	g := &stubGraph{profile: workplace.Profile{
		ID: "1", FirstName: "Ada", PictureIsSilhouette: true, Department: "Eng", ManagerIDs: []string{"9"},
	}}

	p, err := platform.New(g).FetchProfile(context.Background(), "1")
	require.NoError(t, err)
	require.Equal(t, "Ada", p.FirstName)
	require.True(t, p.PictureIsSilhouette)
	require.Equal(t, []string{"9"}, p.ManagerIDs)
}

func TestAdapterPassesErrorsThrough(t *testing.T) {
	boom := &workplace.APIError{Op: "send_text", StatusCode: 400, Message: "bad recipient"}
	a := platform.New(&stubGraph{err: boom})

	err := a.SendText(context.Background(), "1", "hi")
	var apiErr *workplace.APIError
	require.True(t, errors.As(err, &apiErr))

	_, err = a.FetchRosterPage(context.Background(), "")
	require.ErrorIs(t, err, boom)
}

func TestAdapterSendsMessages(t *testing.T) {
	g := &stubGraph{}
	a := platform.New(g)

	require.NoError(t, a.SendText(context.Background(), "1", "hi"))
	require.NoError(t, a.SendButtonPrompt(context.Background(), "1", "ready?", "Done", domain.SetupCompletedPayload))
	require.Equal(t, []string{"1:hi", "1:ready?[Done=SETUP_COMPLETED_PAYLOAD]"}, g.sent)
}
