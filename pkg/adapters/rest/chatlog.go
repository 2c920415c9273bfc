package rest

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/aretw0/parley/pkg/domain"
)

// ChatLog implements ports.ChatLog against the chat log service.
type ChatLog struct {
	c *resty.Client
}

// NewChatLog creates a chat log client.
func NewChatLog(ep Endpoint) *ChatLog {
	return &ChatLog{c: ep.client()}
}

func (l *ChatLog) post(ctx context.Context, path string, body any) error {
	res, err := l.c.R().SetContext(ctx).SetBody(body).Post(path)
	if err := check(res, err); err != nil {
		return fmt.Errorf("chatlog %s: %w", path, err)
	}
	return nil
}

// SaveMessages posts the records as one JSON array.
func (l *ChatLog) SaveMessages(ctx context.Context, msgs []domain.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}
	return l.post(ctx, "/messages", msgs)
}

func (l *ChatLog) SaveSession(ctx context.Context, rec domain.SessionRecord) error {
	return l.post(ctx, "/sessions", rec)
}

func (l *ChatLog) SaveTicket(ctx context.Context, rec domain.TicketRecord) error {
	return l.post(ctx, "/tickets", rec)
}

func (l *ChatLog) SaveFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	return l.post(ctx, "/feedback", rec)
}

// Close releases idle connections.
func (l *ChatLog) Close() error {
	return l.c.Close()
}
