package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/graph"
	"github.com/aretw0/parley/pkg/ports"
)

// Defaults seeded into every new tracker.
const (
	DefaultAgentName = "Eva"
	DefaultTimeout   = 240 * time.Second
	DefaultLockTTL   = 30 * time.Second
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager is the registry of active sessions.
// It uses Reference Counting to garbage collect unused operation locks.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	lmu   sync.Mutex
	locks map[string]*lockEntry

	chatlog ports.ChatLog
	store   ports.TrackerStore
	locker  ports.DistributedLocker
	lockTTL time.Duration

	agentName string
	timeout   time.Duration
	delay     time.Duration
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithChatLog sets the logging collaborator transcripts are handed to on Save.
func WithChatLog(c ports.ChatLog) Option {
	return func(m *Manager) { m.chatlog = c }
}

// WithStore keeps a tracker snapshot of every saved session.
func WithStore(s ports.TrackerStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithLocker enables distributed locking around Save.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = locker
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager and its sessions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithHooks registers lifecycle callbacks on every session.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(m *Manager) { m.hooks = m.hooks.Merge(h) }
}

// WithAgentName sets the agent_name tracker seed.
func WithAgentName(name string) Option {
	return func(m *Manager) { m.agentName = name }
}

// WithTimeout sets the default listen timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithDelay sets the pause between two steps.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) { m.delay = d }
}

// NewManager creates an empty session registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		locks:     make(map[string]*lockEntry),
		lockTTL:   DefaultLockTTL,
		agentName: DefaultAgentName,
		timeout:   DefaultTimeout,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new session bound to g. An empty sessionID gets a fresh UUID.
// An id that is already active is rejected with domain.ErrSessionExists.
func (m *Manager) Create(g *graph.Graph, sessionID, origin string) (*Session, error) {
	if g == nil {
		return nil, fmt.Errorf("create session: nil graph")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	s := &Session{
		id:     sessionID,
		origin: origin,
		graph:  g,
		seed: domain.TrackerSeed{
			SessionID: sessionID,
			Origin:    origin,
			AgentName: m.agentName,
			Timeout:   m.timeout,
			Delay:     m.delay,
		},
		hooks:  m.hooks,
		logger: m.logger,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[sessionID]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionExists, sessionID)
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Get returns an active session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session from the registry.
func (m *Manager) Delete(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// List returns the ids of the active sessions, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len is the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Update merges patch into the session's tracker.
func (m *Manager) Update(sessionID string, patch map[string]any) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	return s.Update(patch)
}

// SetApplicationData replaces the session's application_data.
func (m *Manager) SetApplicationData(sessionID string, data map[string]any) error {
	return m.Update(sessionID, map[string]any{domain.KeyApplicationData: data})
}

// Snapshot returns the tracker of an active session, or the stored snapshot
// of a finished one when a TrackerStore is configured.
func (m *Manager) Snapshot(ctx context.Context, sessionID string) (domain.Tracker, error) {
	if s, err := m.Get(sessionID); err == nil {
		if t := s.Snapshot(); t != nil {
			return t, nil
		}
		return nil, domain.ErrNotInitialized
	}
	if m.store == nil {
		return nil, domain.ErrSessionNotFound
	}
	return m.store.Load(ctx, sessionID)
}

// Save hands the transcript and the session summary to the logging
// collaborator and snapshots the tracker. Collaborator failures are logged,
// never returned.
func (m *Manager) Save(ctx context.Context, sessionID string) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		t := s.Snapshot()
		if t == nil {
			return domain.ErrNotInitialized
		}
		if t[domain.KeyEndedAt] == nil {
			t[domain.KeyEndedAt] = time.Now().UTC().Format(time.RFC3339)
		}

		if m.chatlog != nil {
			if err := m.chatlog.SaveMessages(ctx, domain.MessageRecords(t.History())); err != nil {
				m.logger.Error("failed to save messages", "session_id", sessionID, "err", err)
			}
			if err := m.chatlog.SaveSession(ctx, domain.SummaryOf(t)); err != nil {
				m.logger.Error("failed to save session", "session_id", sessionID, "err", err)
			}
		}
		if m.store != nil {
			if err := m.store.Save(ctx, sessionID, t); err != nil {
				m.logger.Warn("failed to snapshot tracker", "session_id", sessionID, "err", err)
			}
		}
		return nil
	})
}

// End saves the session and removes it from the registry.
// The session is removed even when saving fails.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	defer m.Delete(sessionID)
	if err := m.Save(ctx, sessionID); err != nil {
		return fmt.Errorf("end session %s: %w", sessionID, err)
	}
	m.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.lmu.Lock()
	defer m.lmu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the operation lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
