package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSessionStart  EventType = "session_start"
	EventSessionEnd    EventType = "session_end"
	EventNodeEnter     EventType = "node_enter"
	EventNodeLeave     EventType = "node_leave"
	EventListenTimeout EventType = "listen_timeout"
	EventMessage       EventType = "message"
)

// Session outcomes reported on EventSessionEnd.
const (
	OutcomeCompleted    = "completed"
	OutcomeTimeout      = "timeout"
	OutcomeRouting      = "routing_error"
	OutcomeDisconnected = "disconnected"
	OutcomeError        = "error"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// SessionEvent marks the start or end of a conversation.
type SessionEvent struct {
	EventBase
	Origin  string `json:"origin,omitempty"`
	Outcome string `json:"outcome,omitempty"`
	Err     error  `json:"-"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	NodeType NodeType      `json:"node_type"`
	Intent   string        `json:"intent,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// MessageEvent carries every message the session emits.
type MessageEvent struct {
	EventBase
	Message ChatMessage `json:"message"`
}

// LifecycleHooks defines callbacks for session observability.
// Any field may be nil.
type LifecycleHooks struct {
	OnSessionStart  func(context.Context, *SessionEvent)
	OnSessionEnd    func(context.Context, *SessionEvent)
	OnNodeEnter     func(context.Context, *NodeEvent)
	OnNodeLeave     func(context.Context, *NodeEvent)
	OnListenTimeout func(context.Context, *NodeEvent)
	OnMessage       func(context.Context, *MessageEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnSessionStart:  chain(h.OnSessionStart, other.OnSessionStart),
		OnSessionEnd:    chain(h.OnSessionEnd, other.OnSessionEnd),
		OnNodeEnter:     chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave:     chain(h.OnNodeLeave, other.OnNodeLeave),
		OnListenTimeout: chain(h.OnListenTimeout, other.OnListenTimeout),
		OnMessage:       chain(h.OnMessage, other.OnMessage),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
