package memory

import (
	"context"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// ChatLog records everything handed to the logging collaborator.
// A non-nil Err makes every call fail with it.
type ChatLog struct {
	Err error

	mu       sync.Mutex
	messages []domain.MessageRecord
	sessions []domain.SessionRecord
	tickets  []domain.TicketRecord
	feedback []domain.FeedbackRecord
}

// NewChatLog creates an empty recorder.
func NewChatLog() *ChatLog {
	return &ChatLog{}
}

func (c *ChatLog) SaveMessages(_ context.Context, msgs []domain.MessageRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.messages = append(c.messages, msgs...)
	return nil
}

func (c *ChatLog) SaveSession(_ context.Context, rec domain.SessionRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.sessions = append(c.sessions, rec)
	return nil
}

func (c *ChatLog) SaveTicket(_ context.Context, rec domain.TicketRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.tickets = append(c.tickets, rec)
	return nil
}

func (c *ChatLog) SaveFeedback(_ context.Context, rec domain.FeedbackRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return c.Err
	}
	c.feedback = append(c.feedback, rec)
	return nil
}

// Messages returns the recorded message records.
func (c *ChatLog) Messages() []domain.MessageRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.MessageRecord(nil), c.messages...)
}

// Sessions returns the recorded session summaries.
func (c *ChatLog) Sessions() []domain.SessionRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.SessionRecord(nil), c.sessions...)
}

// Tickets returns the recorded ticket records.
func (c *ChatLog) Tickets() []domain.TicketRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TicketRecord(nil), c.tickets...)
}

// Feedback returns the recorded feedback.
func (c *ChatLog) Feedback() []domain.FeedbackRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.FeedbackRecord(nil), c.feedback...)
}
