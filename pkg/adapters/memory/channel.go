package memory

import (
	"context"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Channel is an in-process ports.Channel. The session side uses Send and
// Receive; the client side uses Say, Messages and Sent.
type Channel struct {
	in   chan ports.Inbound
	out  chan domain.ChatMessage
	done chan struct{}
	once sync.Once

	mu   sync.Mutex
	sent []domain.ChatMessage
}

// NewChannel creates a channel buffering up to buffer messages each way.
func NewChannel(buffer int) *Channel {
	return &Channel{
		in:   make(chan ports.Inbound, buffer),
		out:  make(chan domain.ChatMessage, buffer),
		done: make(chan struct{}),
	}
}

// Say queues user input for the session.
func (c *Channel) Say(text string) error {
	select {
	case <-c.done:
		return domain.ErrChannelClosed
	default:
	}
	select {
	case c.in <- ports.Inbound{Text: text}:
		return nil
	case <-c.done:
		return domain.ErrChannelClosed
	}
}

// Messages streams what the session sends. Send blocks when nobody drains it
// and the buffer is full.
func (c *Channel) Messages() <-chan domain.ChatMessage { return c.out }

// Done is closed once the channel is closed.
func (c *Channel) Done() <-chan struct{} { return c.done }

// Sent returns every message sent so far.
func (c *Channel) Sent() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.sent...)
}

func (c *Channel) Send(ctx context.Context, msg domain.ChatMessage) error {
	select {
	case <-c.done:
		return domain.ErrChannelClosed
	default:
	}
	select {
	case c.out <- msg:
	case <-c.done:
		return domain.ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

func (c *Channel) Receive(ctx context.Context) (ports.Inbound, error) {
	select {
	case in := <-c.in:
		return in, nil
	case <-c.done:
		return ports.Inbound{}, domain.ErrChannelClosed
	case <-ctx.Done():
		return ports.Inbound{}, ctx.Err()
	}
}

func (c *Channel) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
