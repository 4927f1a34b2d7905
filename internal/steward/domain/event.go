package domain

import "encoding/json"

// Webhook object discriminators.
const (
	ObjectPage              = "page"
	ObjectWorkplaceSecurity = "workplace_security"
	ObjectUser              = "user"
)

// Change fields handled by the router.
const (
	FieldSessions      = "sessions"
	FieldAdminActivity = "admin_activity"
	FieldPosts         = "posts"
	FieldComments      = "comments"
	FieldEvents        = "events"
	FieldReactions     = "reactions"
)

// Security change events.
const (
	EventLogIn                = "LOG_IN"
	EventAdminCreateAccount   = "ADMIN_CREATE_ACCOUNT"
	EventAdminActivateAccount = "ADMIN_ACTIVATE_ACCOUNT"
)

// SetupCompletedPayload is the postback payload of the onboarding button.
const SetupCompletedPayload = "SETUP_COMPLETED_PAYLOAD"

// Payload is one webhook delivery.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []MessagingEvent `json:"messaging,omitempty"`
	Changes   []Change         `json:"changes,omitempty"`
}

type MessagingEvent struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

type Party struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type Message struct {
	Mid    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo,omitempty"`
}

type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Change is a field change notification. Value is decoded according to
// Field by the router.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// SecurityChange is the value of workplace_security changes.
type SecurityChange struct {
	Event      string `json:"event"`
	ActorID    string `json:"actor_id"`
	TargetID   string `json:"target_id"`
	TargetType string `json:"target_type"`
}

// Subject returns the account the event is about.
func (c SecurityChange) Subject() string {
	if c.TargetID != "" {
		return c.TargetID
	}
	return c.ActorID
}

// ActivityChange is the value of post, comment, calendar event and reaction
// changes. Only the acting account matters.
type ActivityChange struct {
	From     Party  `json:"from"`
	ActorID  string `json:"actor_id"`
	SenderID string `json:"sender_id"`
	Verb     string `json:"verb"`
	Item     string `json:"item"`
}

// Actor returns the account that performed the activity.
func (c ActivityChange) Actor() string {
	switch {
	case c.From.ID != "":
		return c.From.ID
	case c.ActorID != "":
		return c.ActorID
	default:
		return c.SenderID
	}
}
