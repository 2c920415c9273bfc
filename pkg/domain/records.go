package domain

import "time"

// MessageRecord is a transcript line as stored by the logging collaborator.
type MessageRecord struct {
	MessageID   string    `json:"message_id"`
	SessionID   string    `json:"session_id"`
	CreatedAt   time.Time `json:"created_at"`
	Exchange    string    `json:"exchange"`
	MessageType Role      `json:"message_type"`
}

// SessionRecord is the end-of-conversation summary.
type SessionRecord struct {
	SessionID       string         `json:"session_id"`
	CreatedAt       string         `json:"created_at,omitempty"`
	EndedAt         string         `json:"ended_at,omitempty"`
	UserName        string         `json:"user_name,omitempty"`
	UserEmail       string         `json:"user_email,omitempty"`
	UserRole        string         `json:"user_role,omitempty"`
	DataUserConsent bool           `json:"data_user_consent"`
	Origin          string         `json:"origin,omitempty"`
	ApplicationData map[string]any `json:"application_data,omitempty"`
	Metadata        string         `json:"metadata,omitempty"`
}

// TicketRecord links a support ticket to the session that raised it.
type TicketRecord struct {
	SessionID string `json:"session_id"`
	Data      string `json:"data"`
	TicketID  string `json:"ticket_id"`
}

// FeedbackRecord is a rating left by the user on a conversation step.
type FeedbackRecord struct {
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	Feedback      string    `json:"feedback"`
	FeedbackStage string    `json:"feedback_stage,omitempty"`
	Data          string    `json:"data,omitempty"`
}

// MessageRecords converts the USER/AI entries of a transcript.
// Signal frames are not persisted.
func MessageRecords(history []ChatMessage) []MessageRecord {
	var out []MessageRecord
	for _, m := range history {
		if !m.User.IsContent() {
			continue
		}
		out = append(out, MessageRecord{
			MessageID:   m.MessageID,
			SessionID:   m.SessionID,
			CreatedAt:   m.Timestamp,
			Exchange:    m.Content(),
			MessageType: m.User,
		})
	}
	return out
}

// SummaryOf builds the session summary from a tracker.
func SummaryOf(t Tracker) SessionRecord {
	rec := SessionRecord{
		SessionID: t.String(KeySessionID),
		CreatedAt: t.String(KeyCreatedAt),
		EndedAt:   t.String(KeyEndedAt),
		UserName:  t.String(KeyName),
		UserEmail: t.String(KeyEmail),
		UserRole:  t.String(KeyRole),
		Origin:    t.String(KeyOrigin),
		Metadata:  t.String(KeyUserAgent),
	}
	rec.DataUserConsent, _ = t[KeyDataUserConsent].(bool)
	rec.ApplicationData, _ = t[KeyApplicationData].(map[string]any)
	return rec
}
