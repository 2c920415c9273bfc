package parley

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/graph"
	"github.com/aretw0/parley/pkg/handler"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

// saveTimeout bounds the end-of-conversation save, which runs even after the
// conversation context is cancelled.
const saveTimeout = 15 * time.Second

// Bot is the high-level entry point: it owns the workflow graph and the
// session registry and runs one conversation per Channel.
type Bot struct {
	loader   ports.WorkflowLoader
	registry *handler.Registry
	cache    *graph.Cache
	manager  *session.Manager

	deps        handler.Deps
	chatlog     ports.ChatLog
	cacheTTL    time.Duration
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	sessionOpts []session.Option
}

// Option configures the Bot.
type Option func(*Bot)

// WithLoader sets where the workflow document comes from. It is required.
func WithLoader(l ports.WorkflowLoader) Option {
	return func(b *Bot) { b.loader = l }
}

// WithLogger sets a structured logger for the bot, its sessions and handlers.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithClassifier sets the service decider nodes ask.
func WithClassifier(c ports.Classifier) Option {
	return func(b *Bot) { b.deps.Classifier = c }
}

// WithKnowledgeBase sets the service qa nodes ask.
func WithKnowledgeBase(kb ports.KnowledgeBase) Option {
	return func(b *Bot) { b.deps.KnowledgeBase = kb }
}

// WithGenerator sets the service ai nodes ask.
func WithGenerator(g ports.Generator) Option {
	return func(b *Bot) { b.deps.Generator = g }
}

// WithTicketing sets the service ticket nodes open tickets with.
func WithTicketing(t ports.Ticketing) Option {
	return func(b *Bot) { b.deps.Ticketing = t }
}

// WithChatLog sets the logging collaborator. It receives transcripts,
// session summaries, tickets and feedback.
func WithChatLog(c ports.ChatLog) Option {
	return func(b *Bot) { b.chatlog = c }
}

// WithStore keeps tracker snapshots of finished sessions.
func WithStore(s ports.TrackerStore) Option {
	return func(b *Bot) { b.sessionOpts = append(b.sessionOpts, session.WithStore(s)) }
}

// WithLocker serialises session saves across replicas.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(b *Bot) { b.sessionOpts = append(b.sessionOpts, session.WithLocker(l, ttl)) }
}

// WithLifecycleHooks registers observability hooks. Repeated calls add hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) { b.hooks = b.hooks.Merge(hooks) }
}

// WithAgentName sets the agent name seeded into every tracker.
func WithAgentName(name string) Option {
	return func(b *Bot) { b.sessionOpts = append(b.sessionOpts, session.WithAgentName(name)) }
}

// WithTimeout sets the default listen timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bot) { b.sessionOpts = append(b.sessionOpts, session.WithTimeout(d)) }
}

// WithDelay sets the pause between steps.
func WithDelay(d time.Duration) Option {
	return func(b *Bot) { b.sessionOpts = append(b.sessionOpts, session.WithDelay(d)) }
}

// WithGraphCacheTTL expires the built graph after ttl so edits to the
// workflow are picked up. Zero keeps it until Reload.
func WithGraphCacheTTL(ttl time.Duration) Option {
	return func(b *Bot) { b.cacheTTL = ttl }
}

// New builds a Bot and loads its workflow once, so a broken document is
// reported here rather than on the first conversation.
func New(opts ...Option) (*Bot, error) {
	b := &Bot{}
	for _, opt := range opts {
		opt(b)
	}
	if b.loader == nil {
		return nil, errors.New("parley: a workflow loader is required")
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	b.logger = b.logger.With("workflow", b.loader.Source())

	b.deps.ChatLog = b.chatlog
	b.deps.Logger = b.logger
	b.registry = handler.NewRegistry(b.deps)
	b.cache = graph.NewCache(b.cacheTTL)

	mopts := []session.Option{
		session.WithLogger(b.logger),
		session.WithHooks(b.hooks),
	}
	if b.chatlog != nil {
		mopts = append(mopts, session.WithChatLog(b.chatlog))
	}
	b.manager = session.NewManager(append(mopts, b.sessionOpts...)...)

	if _, err := b.Graph(context.Background()); err != nil {
		return nil, err
	}
	return b, nil
}

// Graph returns the built workflow graph, building it on first use.
func (b *Bot) Graph(ctx context.Context) (*graph.Graph, error) {
	return b.cache.Get(ctx, b.loader, b.registry)
}

// Reload drops the cached graph. Running conversations keep the graph
// they started with.
func (b *Bot) Reload() {
	b.cache.Invalidate(b.loader.Source())
	b.logger.Info("workflow reloaded")
}

// Manager exposes the session registry.
func (b *Bot) Manager() *session.Manager {
	return b.manager
}

// Converse runs one conversation over ch and saves it when it ends.
// meta is merged into the tracker before the first node runs; an empty
// sessionID gets a fresh id. The session is saved and removed from the
// registry whatever the outcome, and the error of the run is returned.
func (b *Bot) Converse(ctx context.Context, ch ports.Channel, sessionID, origin string, meta map[string]any) error {
	g, err := b.Graph(ctx)
	if err != nil {
		_ = ch.Close()
		return err
	}
	s, err := b.manager.Create(g, sessionID, origin)
	if err != nil {
		_ = ch.Close()
		return err
	}
	logger := b.logger.With("session_id", s.ID(), "origin", origin)

	defer func() {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := b.manager.End(saveCtx, s.ID()); err != nil {
			logger.Error("failed to end session", "err", err)
		}
	}()

	if err := s.Init(); err != nil {
		_ = ch.Close()
		return err
	}
	if len(meta) > 0 {
		if err := s.Update(meta); err != nil {
			_ = ch.Close()
			return err
		}
	}

	logger.Info("conversation started")
	err = s.Run(ctx, ch)
	switch {
	case err == nil:
		logger.Info("conversation finished")
	case errors.Is(err, domain.ErrChannelClosed), errors.Is(err, context.Canceled):
		logger.Info("client disconnected", "err", err)
	default:
		logger.Warn("conversation failed", "err", err)
	}
	return err
}

// Sessions lists the ids of the running conversations.
func (b *Bot) Sessions() []string {
	return b.manager.List()
}

// Snapshot returns the tracker of a running or saved session.
func (b *Bot) Snapshot(ctx context.Context, sessionID string) (domain.Tracker, error) {
	return b.manager.Snapshot(ctx, sessionID)
}

// Mermaid renders the workflow as a Mermaid flowchart.
func (b *Bot) Mermaid(ctx context.Context) (string, error) {
	return b.MermaidAt(ctx, "")
}

// MermaidAt renders the workflow highlighting the node the session is on.
// An empty sessionID highlights nothing.
func (b *Bot) MermaidAt(ctx context.Context, sessionID string) (string, error) {
	g, err := b.Graph(ctx)
	if err != nil {
		return "", err
	}
	var current string
	if sessionID != "" {
		t, err := b.Snapshot(ctx, sessionID)
		if err != nil {
			return "", err
		}
		current = t.CurrentNode()
	}
	return graph.Mermaid(g, current), nil
}

// UpdateSession merges patch into a running session's tracker.
func (b *Bot) UpdateSession(sessionID string, patch map[string]any) error {
	return b.manager.Update(sessionID, patch)
}

// ApplicationData is what the host application knows about the user.
type ApplicationData struct {
	Email    string `json:"sub,omitempty"`
	Role     string `json:"auth,omitempty"`
	Name     string `json:"fn,omitempty"`
	LastName string `json:"ln,omitempty"`
	Token    string `json:"token,omitempty"`
}

func (d ApplicationData) fields() map[string]any {
	out := map[string]any{}
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("sub", d.Email)
	put("auth", d.Role)
	put("fn", d.Name)
	put("ln", d.LastName)
	put("token", d.Token)
	return out
}

// SetApplicationData stores data as the session's application_data and
// fills the tracker's email, role and name when they are still empty.
func (b *Bot) SetApplicationData(sessionID string, data ApplicationData) error {
	s, err := b.manager.Get(sessionID)
	if err != nil {
		return err
	}
	defaults := map[string]any{}
	fill := func(key, v string) {
		if v != "" {
			defaults[key] = v
		}
	}
	fill(domain.KeyEmail, data.Email)
	fill(domain.KeyRole, data.Role)
	fill(domain.KeyName, strings.TrimSpace(data.Name+" "+data.LastName))
	return s.Patch(map[string]any{domain.KeyApplicationData: data.fields()}, defaults)
}

// Feedback forwards a user rating to the logging collaborator.
func (b *Bot) Feedback(ctx context.Context, rec domain.FeedbackRecord) error {
	if rec.SessionID == "" {
		return errors.New("feedback: missing session id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if b.chatlog == nil {
		b.logger.Debug("feedback dropped, no chat log configured", "session_id", rec.SessionID)
		return nil
	}
	if err := b.chatlog.SaveFeedback(ctx, rec); err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}
