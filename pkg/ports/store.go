package ports

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// TrackerStore persists tracker snapshots so finished or running sessions
// can be inspected from any replica.
type TrackerStore interface {
	// Save persists the tracker for a given session ID.
	Save(ctx context.Context, sessionID string, tracker domain.Tracker) error

	// Load retrieves the tracker for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Tracker, error)

	// Delete removes the tracker for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the ids of stored sessions.
	List(ctx context.Context) ([]string, error)
}
