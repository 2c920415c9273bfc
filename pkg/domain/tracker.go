package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Tracker is the per-session conversation state.
// Keys are tracker field names; values are dynamically typed.
type Tracker map[string]any

// TrackerSeed carries the values a session starts with.
type TrackerSeed struct {
	SessionID string
	Origin    string
	AgentName string
	Timeout   time.Duration
	Delay     time.Duration
	CreatedAt time.Time
}

// NewTracker builds a Tracker with every seeded key present.
func NewTracker(seed TrackerSeed) Tracker {
	created := seed.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return Tracker{
		KeyCurrentNode:     StartNodeID,
		KeyLastUtterance:   nil,
		KeyLastResponse:    nil,
		KeySessionID:       seed.SessionID,
		KeyHistory:         []ChatMessage{},
		KeyTimeoutIters:    0,
		KeyCurrentIntent:   nil,
		KeyCreatedAt:       created.Format(time.RFC3339),
		KeyEndedAt:         nil,
		KeyName:            nil,
		KeyEmail:           nil,
		KeyRole:            nil,
		KeyDataUserConsent: false,
		KeyApplicationData: map[string]any{},
		KeyTimeout:         seed.Timeout.Seconds(),
		KeyDelay:           seed.Delay.Seconds(),
		KeyOrigin:          seed.Origin,
		KeyAgentName:       seed.AgentName,
	}
}

// CurrentNode returns the active node id, or "" when the walk is over.
func (t Tracker) CurrentNode() string {
	id, _ := t[KeyCurrentNode].(string)
	return id
}

// SetCurrentNode moves the walk; "" means there is no next node.
func (t Tracker) SetCurrentNode(id string) {
	t[KeyCurrentNode] = id
}

// History returns the transcript recorded so far.
func (t Tracker) History() []ChatMessage {
	h, _ := t[KeyHistory].([]ChatMessage)
	return h
}

// Append records a message in the transcript.
func (t Tracker) Append(msg ChatMessage) {
	t[KeyHistory] = append(t.History(), msg)
}

// TimeoutIters is the number of consecutive listen timeouts.
func (t Tracker) TimeoutIters() int {
	switch n := t[KeyTimeoutIters].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// String returns a string field, or "" when absent or not a string.
func (t Tracker) String(key string) string {
	s, _ := t[key].(string)
	return s
}

// Seconds reads a duration stored as seconds.
func (t Tracker) Seconds(key string) time.Duration {
	switch v := t[key].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	}
	return 0
}

// Clone returns a copy safe to hand to other goroutines.
// The history slice and application data map are copied; other values are shared.
func (t Tracker) Clone() Tracker {
	c := maps.Clone(t)
	if h := t.History(); h != nil {
		c[KeyHistory] = append([]ChatMessage(nil), h...)
	}
	if app, ok := t[KeyApplicationData].(map[string]any); ok {
		c[KeyApplicationData] = maps.Clone(app)
	}
	return c
}

// DecodeTracker reads a tracker serialised as JSON. The history is restored
// as []ChatMessage; other values keep their JSON types.
func DecodeTracker(b []byte) (Tracker, error) {
	var t Tracker
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode tracker: %w", err)
	}
	var typed struct {
		History []ChatMessage `json:"history"`
	}
	if err := json.Unmarshal(b, &typed); err != nil {
		return nil, fmt.Errorf("decode tracker history: %w", err)
	}
	if typed.History == nil {
		typed.History = []ChatMessage{}
	}
	t[KeyHistory] = typed.History
	return t, nil
}
