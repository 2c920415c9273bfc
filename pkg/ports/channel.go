package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Inbound is a message received from the client.
type Inbound struct {
	Text string `json:"text"`
}

// Channel is the duplex connection a session talks through.
type Channel interface {
	// Send delivers one message to the client.
	Send(ctx context.Context, msg domain.ChatMessage) error

	// Receive blocks until the client sends a message or ctx is done.
	// A deadline on ctx is how the session bounds a listen step; the
	// channel must return ctx.Err() in that case and stay usable.
	Receive(ctx context.Context) (Inbound, error)

	// Close ends the conversation. It is safe to call more than once.
	Close() error
}
