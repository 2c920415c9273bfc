// Package websocket adapts a gorilla websocket connection to ports.Channel.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

const (
	writeWait = 10 * time.Second
	inboxSize = 16
)

// Channel is a ports.Channel over one websocket connection.
// A read pump goroutine decodes client frames into an inbox so that
// Receive can honour context deadlines without tearing the connection down.
type Channel struct {
	conn *websocket.Conn

	inbox chan ports.Inbound
	done  chan struct{}

	writeMu sync.Mutex

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
}

// NewChannel wraps conn and starts reading from it.
func NewChannel(conn *websocket.Conn) *Channel {
	c := &Channel{
		conn:  conn,
		inbox: make(chan ports.Inbound, inboxSize),
		done:  make(chan struct{}),
	}
	go c.readPump()
	return c
}

func (c *Channel) readPump() {
	defer close(c.inbox)
	for {
		var in ports.Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			c.errMu.Lock()
			c.readErr = err
			c.errMu.Unlock()
			return
		}
		select {
		case c.inbox <- in:
		case <-c.done:
			return
		}
	}
}

func (c *Channel) Send(ctx context.Context, msg domain.ChatMessage) error {
	select {
	case <-c.done:
		return domain.ErrChannelClosed
	default:
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (c *Channel) Receive(ctx context.Context) (ports.Inbound, error) {
	select {
	case <-ctx.Done():
		return ports.Inbound{}, ctx.Err()
	case in, ok := <-c.inbox:
		if !ok {
			return ports.Inbound{}, c.err()
		}
		return in, nil
	}
}

func (c *Channel) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.readErr == nil || websocket.IsCloseError(c.readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return domain.ErrChannelClosed
	}
	return errors.Join(domain.ErrChannelClosed, c.readErr)
}

// Close sends a normal close frame and releases the connection.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
