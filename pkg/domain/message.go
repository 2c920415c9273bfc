package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role tags the author or purpose of a ChatMessage.
type Role string

const (
	RoleUser Role = "USER"
	RoleAI   Role = "AI"

	// Signal roles mark protocol phase changes rather than content.
	RoleListenSignal  Role = "listen_signal"
	RoleAISignal      Role = "ai_signal"
	RoleTimeoutSignal Role = "timeout_signal"
	RoleEndSignal     Role = "end_signal"
	RoleErrorSignal   Role = "error_signal"
)

// IsContent reports whether the role carries user-visible conversation text.
func (r Role) IsContent() bool {
	return r == RoleUser || r == RoleAI
}

// Default element colours.
const (
	DefaultBackgroundColor = "#FFFFFF"
	DefaultTextColor       = "#000000"
)

// Element is a UI affordance (button, link, chip) attached to a message.
type Element struct {
	Type            string `json:"type" mapstructure:"type"`
	Label           string `json:"label" mapstructure:"label"`
	Value           string `json:"value" mapstructure:"value"`
	BackgroundColor string `json:"backgroundColor" mapstructure:"backgroundColor"`
	TextColor       string `json:"textColor" mapstructure:"textColor"`
}

// WithDefaults fills the colours left empty by the workflow author.
func (e Element) WithDefaults() Element {
	if e.BackgroundColor == "" {
		e.BackgroundColor = DefaultBackgroundColor
	}
	if e.TextColor == "" {
		e.TextColor = DefaultTextColor
	}
	return e
}

// ChatMessage is one transcript entry exchanged over the channel.
// Messages are immutable once created.
type ChatMessage struct {
	Timestamp time.Time `json:"timestamp"`
	MessageID string    `json:"messageID"`
	SessionID string    `json:"sessionID"`
	Text      *string   `json:"text"`
	Elements  []Element `json:"elements"`
	User      Role      `json:"user"`
	Feedback  bool      `json:"feedback"`
}

// NewMessage stamps a message with a fresh id and the current time.
// An empty text is kept as a null text field on the wire.
func NewMessage(sessionID string, role Role, text string, elements []Element, feedback bool) ChatMessage {
	msg := ChatMessage{
		Timestamp: time.Now().UTC(),
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Elements:  elements,
		User:      role,
		Feedback:  feedback,
	}
	if text != "" {
		msg.Text = &text
	}
	return msg
}

// Content returns the message text or "" for signal frames.
func (m ChatMessage) Content() string {
	if m.Text == nil {
		return ""
	}
	return *m.Text
}
