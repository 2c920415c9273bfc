package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/graph"
	"github.com/aretw0/parley/pkg/handler"
	"github.com/aretw0/parley/pkg/ports"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusCreated Status = iota
	StatusRunning
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusTerminated:
		return "terminated"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Texts sent by the session itself.
const (
	SessionTimeoutText = "Session timeout"
	ErrorText          = "Sorry, something went wrong and this conversation has to end."
)

// Session is one conversation bound to a shared Graph.
type Session struct {
	id     string
	origin string
	graph  *graph.Graph
	seed   domain.TrackerSeed
	hooks  domain.LifecycleHooks
	logger *slog.Logger

	mu      sync.Mutex
	status  Status
	tracker domain.Tracker
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Origin returns the channel tag the session was opened from.
func (s *Session) Origin() string { return s.origin }

// Graph returns the graph the session walks.
func (s *Session) Graph() *graph.Graph { return s.graph }

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Snapshot returns a copy of the tracker. It is nil before Init.
func (s *Session) Snapshot() domain.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return nil
	}
	return s.tracker.Clone()
}

// Init seeds the tracker and moves the session to RUNNING.
func (s *Session) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusCreated {
		return fmt.Errorf("session %s already %s", s.id, s.status)
	}
	s.tracker = domain.NewTracker(s.seed)
	s.status = StatusRunning
	return nil
}

// Update merges patch into the tracker.
func (s *Session) Update(patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return domain.ErrNotInitialized
	}
	maps.Copy(s.tracker, patch)
	return nil
}

// Patch merges set into the tracker and writes each defaults entry only
// where the tracker holds no value or an empty string, in one locked step.
func (s *Session) Patch(set, defaults map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return domain.ErrNotInitialized
	}
	maps.Copy(s.tracker, set)
	for k, v := range defaults {
		if s.tracker.String(k) == "" {
			s.tracker[k] = v
		}
	}
	return nil
}

// Run walks the graph until there is no next node, the channel fails or a
// step fails. The channel is closed when Run returns.
//
// A branching node with no child for the produced intent ends the session
// with an error_signal followed by the end_signal; the *domain.RoutingError
// is returned. Other step failures send a best-effort error_signal.
func (s *Session) Run(ctx context.Context, ch ports.Channel) (err error) {
	if s.Status() != StatusRunning {
		return domain.ErrNotInitialized
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil && !errors.Is(cerr, domain.ErrChannelClosed) {
			s.logger.Debug("channel close failed", "session_id", s.id, "err", cerr)
		}
	}()

	s.sessionEvent(ctx, s.hooks.OnSessionStart, domain.EventSessionStart, "", nil)
	outcome := domain.OutcomeCompleted
	defer func() {
		s.terminate()
		s.sessionEvent(ctx, s.hooks.OnSessionEnd, domain.EventSessionEnd, outcome, err)
	}()

	for {
		id := s.currentNode()
		if id == "" {
			break
		}
		node, ok := s.graph.Node(id)
		if !ok {
			outcome, err = s.fail(ctx, ch, &domain.RoutingError{NodeID: id})
			return err
		}

		if node.Type == domain.NodeTypeListen {
			var expired bool
			expired, err = s.handleListen(ctx, ch, node)
			if expired {
				outcome = domain.OutcomeTimeout
			}
		} else {
			err = s.handleOther(ctx, ch, node)
		}
		if err != nil {
			outcome, err = s.fail(ctx, ch, err)
			return err
		}

		if err = sleep(ctx, s.delay()); err != nil {
			outcome = domain.OutcomeDisconnected
			return err
		}
	}

	if err = s.emit(ctx, ch, domain.RoleEndSignal, "", nil, false); err != nil {
		outcome = domain.OutcomeDisconnected
		return err
	}
	return nil
}

// handleListen waits for user input on a listen node. It reports true when
// the wait hit the hard timeout and the session is over.
func (s *Session) handleListen(ctx context.Context, ch ports.Channel, node *graph.Node) (bool, error) {
	meta := node.Handler.Meta()
	if err := s.emit(ctx, ch, domain.RoleListenSignal, "", meta.Elements, meta.Feedback); err != nil {
		return false, err
	}

	in, err := receive(ctx, ch, s.listenTimeout(node))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return s.handleTimeout(ctx, ch, node)
		}
		return false, err
	}

	res, err := s.execute(ctx, node, in.Text)
	if err != nil {
		return false, err
	}
	text, ok := res.Output.(string)
	if !ok {
		text = in.Text
	}
	if err := s.emit(ctx, ch, domain.RoleUser, text, nil, meta.Feedback); err != nil {
		return false, err
	}
	if err := s.emit(ctx, ch, domain.RoleAISignal, "", nil, meta.Feedback); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.tracker[domain.KeyTimeoutIters] = 0
	s.mu.Unlock()
	return false, nil
}

// handleTimeout retries the listen node once, then ends the session.
func (s *Session) handleTimeout(ctx context.Context, ch ports.Channel, node *graph.Node) (bool, error) {
	meta := node.Handler.Meta()

	s.mu.Lock()
	iters := s.tracker.TimeoutIters()
	s.mu.Unlock()

	if s.hooks.OnListenTimeout != nil {
		s.hooks.OnListenTimeout(ctx, &domain.NodeEvent{
			EventBase: s.base(domain.EventListenTimeout),
			NodeID:    node.ID,
			NodeType:  node.Type,
		})
	}
	s.logger.Debug("listen timeout", "session_id", s.id, "node_id", node.ID, "timeout_iters", iters)

	if iters >= 1 {
		if err := s.emit(ctx, ch, domain.RoleTimeoutSignal, "", nil, meta.Feedback); err != nil {
			return false, err
		}
		if err := s.emit(ctx, ch, domain.RoleAI, SessionTimeoutText, nil, meta.Feedback); err != nil {
			return false, err
		}
		s.mu.Lock()
		s.tracker.SetCurrentNode("")
		s.mu.Unlock()
		return true, nil
	}

	if err := s.emit(ctx, ch, domain.RoleAISignal, "", nil, meta.Feedback); err != nil {
		return false, err
	}
	var retry string
	if l, ok := node.Handler.(*handler.Listen); ok {
		retry = l.TimeoutMessage
	}
	if err := s.emit(ctx, ch, domain.RoleAI, retry, nil, meta.Feedback); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.tracker[domain.KeyTimeoutIters] = iters + 1
	s.mu.Unlock()
	return false, nil
}

func (s *Session) handleOther(ctx context.Context, ch ports.Channel, node *graph.Node) error {
	meta := node.Handler.Meta()
	res, err := s.execute(ctx, node, nil)
	if err != nil {
		return err
	}
	if text, ok := res.Output.(string); ok && text != "" && meta.Show {
		return s.emit(ctx, ch, domain.RoleAI, text, meta.Elements, meta.Feedback)
	}
	return nil
}

// execute runs the node's handler, saves its output, records its intent and
// routes to the next node.
func (s *Session) execute(ctx context.Context, node *graph.Node, value any) (handler.Result, error) {
	if s.hooks.OnNodeEnter != nil {
		s.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: s.base(domain.EventNodeEnter),
			NodeID:    node.ID,
			NodeType:  node.Type,
		})
	}

	start := time.Now()
	res, err := s.step(ctx, node, value)

	if s.hooks.OnNodeLeave != nil {
		s.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
			EventBase: s.base(domain.EventNodeLeave),
			NodeID:    node.ID,
			NodeType:  node.Type,
			Intent:    res.Intent,
			Duration:  time.Since(start),
			Err:       err,
		})
	}
	return res, err
}

// step runs the handler on a copy of the tracker so that collaborator calls
// do not hold the lock; only the writes back are made under it.
func (s *Session) step(ctx context.Context, node *graph.Node, value any) (handler.Result, error) {
	s.mu.Lock()
	view := s.tracker.Clone()
	s.mu.Unlock()

	res, err := node.Handler.Execute(ctx, value, view)
	if err != nil {
		return res, fmt.Errorf("node %s (%s): %w", node.ID, node.Type, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Output != nil {
		for _, key := range node.Handler.Meta().SavingKeys {
			s.tracker[key] = res.Output
		}
	}
	if res.Intent != "" {
		s.tracker[domain.KeyCurrentIntent] = res.Intent
	}

	next, err := s.graph.Next(node.ID, res.Intent)
	if err != nil {
		return res, err
	}
	s.tracker.SetCurrentNode(next)
	return res, nil
}

// fail classifies a step error into an outcome and tells the client when it still can.
func (s *Session) fail(ctx context.Context, ch ports.Channel, err error) (string, error) {
	if disconnected(ctx, err) {
		return domain.OutcomeDisconnected, err
	}

	s.mu.Lock()
	s.tracker.SetCurrentNode("")
	s.mu.Unlock()

	var routeErr *domain.RoutingError
	if errors.As(err, &routeErr) {
		s.logger.Warn("routing failed", "session_id", s.id, "node_id", routeErr.NodeID, "intent", routeErr.Intent)
		if serr := s.emit(ctx, ch, domain.RoleErrorSignal, ErrorText, nil, false); serr != nil {
			return domain.OutcomeDisconnected, errors.Join(err, serr)
		}
		if serr := s.emit(ctx, ch, domain.RoleEndSignal, "", nil, false); serr != nil {
			return domain.OutcomeDisconnected, errors.Join(err, serr)
		}
		return domain.OutcomeRouting, err
	}

	s.logger.Error("session step failed", "session_id", s.id, "err", err)
	if serr := s.emit(ctx, ch, domain.RoleErrorSignal, ErrorText, nil, false); serr != nil {
		s.logger.Debug("could not report failure to client", "session_id", s.id, "err", serr)
	}
	return domain.OutcomeError, err
}

// emit records a message in the transcript and sends it to the client.
func (s *Session) emit(ctx context.Context, ch ports.Channel, role domain.Role, text string, elements []domain.Element, feedback bool) error {
	msg := domain.NewMessage(s.id, role, text, elements, feedback)

	s.mu.Lock()
	s.tracker.Append(msg)
	s.mu.Unlock()

	if err := ch.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s: %w", role, err)
	}
	if s.hooks.OnMessage != nil {
		s.hooks.OnMessage(ctx, &domain.MessageEvent{EventBase: s.base(domain.EventMessage), Message: msg})
	}
	return nil
}

func (s *Session) terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusTerminated
	if s.tracker[domain.KeyEndedAt] == nil {
		s.tracker[domain.KeyEndedAt] = time.Now().UTC().Format(time.RFC3339)
	}
}

func (s *Session) currentNode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.CurrentNode()
}

func (s *Session) delay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Seconds(domain.KeyDelay)
}

// listenTimeout prefers the node's own timeout over the session default.
func (s *Session) listenTimeout(node *graph.Node) time.Duration {
	if l, ok := node.Handler.(*handler.Listen); ok && l.Timeout > 0 {
		return l.Timeout
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Seconds(domain.KeyTimeout)
}

func (s *Session) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, SessionID: s.id}
}

func (s *Session) sessionEvent(ctx context.Context, hook func(context.Context, *domain.SessionEvent), t domain.EventType, outcome string, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.SessionEvent{EventBase: s.base(t), Origin: s.origin, Outcome: outcome, Err: err})
}

func receive(ctx context.Context, ch ports.Channel, timeout time.Duration) (ports.Inbound, error) {
	if timeout <= 0 {
		return ch.Receive(ctx)
	}
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return ch.Receive(rctx)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func disconnected(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, domain.ErrChannelClosed) || errors.Is(err, context.Canceled)
}
