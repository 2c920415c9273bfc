package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the registry or store.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExists is returned when creating a session whose id is already active.
var ErrSessionExists = errors.New("session already exists")

// ErrChannelClosed is returned by a channel after it was closed by either side.
var ErrChannelClosed = errors.New("channel closed")

// ErrNotInitialized is returned when a session is run before init.
var ErrNotInitialized = errors.New("session not initialized")

// ConfigError reports a malformed workflow document or node configuration.
// It is raised at build time, never while a session runs.
type ConfigError struct {
	NodeID string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "invalid workflow"
	if e.NodeID != "" {
		msg += fmt.Sprintf(" (node %q)", e.NodeID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TemplateError reports a placeholder or tracker key that is not present in the tracker.
type TemplateError struct {
	Key      string
	Template string
}

func (e *TemplateError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("tracker has no key %q", e.Key)
	}
	return fmt.Sprintf("template %q: tracker has no key %q", e.Template, e.Key)
}

// TypeCoercionError reports a value that cannot be used as the requested type.
type TypeCoercionError struct {
	Value any
	Type  string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("cannot use %#v as %s", e.Value, e.Type)
}

// ExternalServiceError wraps a failed collaborator call.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// RoutingError reports a branching node with no child labelled with the produced intent.
type RoutingError struct {
	NodeID string
	Intent string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("node %q has no child for intent %q", e.NodeID, e.Intent)
}
