package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/parley/pkg/domain"
)

// Store implements ports.TrackerStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Tracker
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Tracker),
	}
}

// Save keeps a copy of the tracker.
func (s *Store) Save(_ context.Context, sessionID string, tracker domain.Tracker) error {
	copied := tracker.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load returns a copy so the caller can't mutate the stored tracker.
func (s *Store) Load(_ context.Context, sessionID string) (domain.Tracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tracker, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return tracker.Clone(), nil
}

// Delete removes the tracker.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session ids, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
