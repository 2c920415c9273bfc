package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	wsadapter "github.com/aretw0/parley/pkg/adapters/websocket"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/graph"
	"github.com/aretw0/parley/pkg/ports"
)

// Bot is the part of *parley.Bot the server drives.
type Bot interface {
	Converse(ctx context.Context, ch ports.Channel, sessionID, origin string, meta map[string]any) error
	Sessions() []string
	Snapshot(ctx context.Context, sessionID string) (domain.Tracker, error)
	MermaidAt(ctx context.Context, sessionID string) (string, error)
	Reload()
	SetApplicationData(sessionID string, data parley.ApplicationData) error
	Feedback(ctx context.Context, rec domain.FeedbackRecord) error
	Graph(ctx context.Context) (*graph.Graph, error)
}

var _ Bot = (*parley.Bot)(nil)

// Server serves the chat websocket and the session inspection API.
type Server struct {
	Bot     Bot
	Streams *StreamManager

	origins  []string
	metrics  http.Handler
	logger   *slog.Logger
	upgrader websocket.Upgrader
	router   http.Handler

	// Conversations run on hijacked connections that http.Server.Shutdown
	// does not track; they are cancelled through base and counted in live.
	base    context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	closing bool
	live    sync.WaitGroup
}

// Option configures the Server.
type Option func(*Server)

// WithOrigins restricts browser origins for CORS and websocket upgrades.
// "*" allows any origin, which is the default.
func WithOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithStreams shares a StreamManager whose Hooks were given to the bot.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) { s.Streams = sm }
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates the HTTP handler for bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	return New(bot, opts...)
}

// New creates the Server for bot. Call Shutdown after the http.Server has
// stopped so running conversations are saved before the process exits.
func New(bot Bot, opts ...Option) *Server {
	s := &Server{
		Bot:     bot,
		origins: []string{"*"},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowed(origin)
		},
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Post("/reload", s.Reload)
	r.Get("/ws/{origin}/{session_id}", s.Chat)
	r.Get("/sessions", s.ListSessions)
	r.Get("/sessions/{session_id}", s.GetSession)
	r.Get("/sessions/{session_id}/events", s.SubscribeEvents)
	r.Put("/{session_id}/data", s.UpdateApplicationData)
	r.Post("/{session_id}/feedback", s.PostFeedback)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	s.router = s.enableCORS(r)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Shutdown cancels every running conversation and waits until each one has
// been saved, or until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("conversations still running: %w", ctx.Err())
	}
}

func (s *Server) allowed(origin string) bool {
	return slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin)
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && s.allowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Chat upgrades the request and runs a conversation over the websocket.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	origin := chi.URLParam(r, "origin")
	sessionID := chi.URLParam(r, "session_id")

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.live.Add(1)
	s.mu.Unlock()
	defer s.live.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "err", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.base, cancel)
	defer stop()

	meta := map[string]any{}
	if ua := r.UserAgent(); ua != "" {
		meta[domain.KeyUserAgent] = ua
	}
	err = s.Bot.Converse(ctx, wsadapter.NewChannel(conn), sessionID, origin, meta)
	s.Streams.Close(sessionID)
	if err != nil && !errors.Is(err, domain.ErrChannelClosed) {
		s.logger.Info("conversation ended with error", "session_id", sessionID, "err", err)
	}
}

// UpdateApplicationData handles PUT /{session_id}/data.
func (s *Server) UpdateApplicationData(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var body parley.ApplicationData
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if c, err := r.Cookie("token"); err == nil {
		body.Token = c.Value
	}

	if err := s.Bot.SetApplicationData(sessionID, body); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotInitialized) {
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
			return
		}
		s.logger.Error("update application data failed", "session_id", sessionID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Session updated"})
}

type feedbackRequest struct {
	Feedback      string `json:"feedback"`
	FeedbackStage string `json:"feedback_stage"`
	Data          string `json:"data"`
}

// PostFeedback handles POST /{session_id}/feedback.
func (s *Server) PostFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")

	var body feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Feedback == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rec := domain.FeedbackRecord{
		SessionID:     sessionID,
		CreatedAt:     time.Now().UTC(),
		Feedback:      body.Feedback,
		FeedbackStage: body.FeedbackStage,
		Data:          body.Data,
	}
	if err := s.Bot.Feedback(r.Context(), rec); err != nil {
		s.logger.Error("feedback failed", "session_id", sessionID, "err", err)
		http.Error(w, "Feedback not saved", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Bot.Sessions())
}

// GetSession handles GET /sessions/{session_id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	t, err := s.Bot.Snapshot(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrNotInitialized) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		s.logger.Error("snapshot failed", "session_id", sessionID, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// GetGraph handles GET /graph. ?session= highlights that session's node.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	out, err := s.Bot.MermaidAt(r.Context(), r.URL.Query().Get("session"))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Graph error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// Reload handles POST /reload.
func (s *Server) Reload(w http.ResponseWriter, r *http.Request) {
	s.Bot.Reload()
	if _, err := s.Bot.MermaidAt(r.Context(), ""); err != nil {
		s.logger.Error("reloaded workflow is invalid", "err", err)
		http.Error(w, fmt.Sprintf("Reload error: %v", err), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	g, err := s.Bot.Graph(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Graph error: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "parley",
		"version": strings.TrimSpace(parley.Version),
		"nodes":   g.Len(),
	})
}

// SubscribeEvents streams a session's messages as server-sent events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "session_id")

	ch, cancel := s.Streams.Subscribe(sessionID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				fmt.Fprintf(w, "event: end\ndata: %s\n\n", sessionID)
				flusher.Flush()
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
