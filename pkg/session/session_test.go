package session_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/adapters/memory"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/graph"
	"github.com/aretw0/parley/pkg/handler"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/aretw0/parley/pkg/session"
)

const echoFlow = `
start:
  class: startNode
  data: {text: "Hi, I am {agent_name}."}
  outputs: {output_1: {connections: [{node: ask}]}}
ask:
  class: listenerNode
  data: {timeout: "Are you still there?", timeout_seconds: 0.05}
  outputs: {output_1: {connections: [{node: check}]}}
check:
  class: ifNode
  data: {variable: last_utterance, condition: contains, type: text, value: bye}
  outputs: {output_1: {connections: [{node: "yes"}, {node: "no"}]}}
"yes":
  class: intentNode
  data: {intent: "yes"}
  outputs: {output_1: {connections: [{node: end}]}}
"no":
  class: intentNode
  data: {intent: "no"}
  outputs: {output_1: {connections: [{node: again}]}}
again:
  class: textNode
  data: {text: "You said {last_utterance}."}
  outputs: {output_1: {connections: [{node: ask}]}}
end:
  class: endNode
  data: {text: "Goodbye!"}
`

func buildGraph(t *testing.T, doc string, deps handler.Deps) *graph.Graph {
	t.Helper()
	parsed, err := graph.ParseDocument([]byte(doc))
	require.NoError(t, err)
	g, err := graph.Build(parsed, handler.NewRegistry(deps))
	require.NoError(t, err)
	return g
}

func roles(msgs []domain.ChatMessage) []domain.Role {
	out := make([]domain.Role, len(msgs))
	for i, m := range msgs {
		out[i] = m.User
	}
	return out
}

func contents(msgs []domain.ChatMessage) []string {
	var out []string
	for _, m := range msgs {
		if m.User.IsContent() {
			out = append(out, m.Content())
		}
	}
	return out
}

type outcomes struct {
	mu   sync.Mutex
	ends []*domain.SessionEvent
}

func (o *outcomes) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.ends = append(o.ends, e)
		},
	}
}

func (o *outcomes) last() *domain.SessionEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.ends) == 0 {
		return nil
	}
	return o.ends[len(o.ends)-1]
}

func start(t *testing.T, m *session.Manager, g *graph.Graph, id string) *session.Session {
	t.Helper()
	s, err := m.Create(g, id, "test")
	require.NoError(t, err)
	require.NoError(t, s.Init())
	return s
}

func TestRun_RoundTrip(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	out := &outcomes{}
	m := session.NewManager(session.WithHooks(out.hooks()))
	s := start(t, m, g, "round-trip")

	ch := memory.NewChannel(32)
	require.NoError(t, ch.Say("hi"))
	require.NoError(t, ch.Say("bye bye"))

	require.NoError(t, s.Run(context.Background(), ch))

	sent := ch.Sent()
	assert.Equal(t, []domain.Role{
		domain.RoleAI,
		domain.RoleListenSignal, domain.RoleUser, domain.RoleAISignal,
		domain.RoleAI,
		domain.RoleListenSignal, domain.RoleUser, domain.RoleAISignal,
		domain.RoleAI,
		domain.RoleEndSignal,
	}, roles(sent))
	assert.Equal(t, []string{"Hi, I am Eva.", "hi", "You said hi.", "bye bye", "Goodbye!"}, contents(sent))

	snap := s.Snapshot()
	assert.Equal(t, "", snap.CurrentNode())
	assert.Equal(t, "bye bye", snap[domain.KeyLastUtterance])
	assert.Equal(t, "Goodbye!", snap[domain.KeyLastResponse])
	assert.Equal(t, domain.IntentYes, snap[domain.KeyCurrentIntent])
	assert.Equal(t, 0, snap.TimeoutIters())
	assert.NotNil(t, snap[domain.KeyEndedAt])
	assert.Len(t, snap.History(), len(sent))

	assert.Equal(t, session.StatusTerminated, s.Status())
	assert.Equal(t, domain.OutcomeCompleted, out.last().Outcome)
	assert.ErrorIs(t, ch.Say("late"), domain.ErrChannelClosed, "channel is closed at the end")
}

func TestRun_HardTimeout(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	out := &outcomes{}
	m := session.NewManager(session.WithHooks(out.hooks()))
	s := start(t, m, g, "silent")

	ch := memory.NewChannel(32)
	require.NoError(t, s.Run(context.Background(), ch))

	sent := ch.Sent()
	assert.Equal(t, []domain.Role{
		domain.RoleAI,
		domain.RoleListenSignal, domain.RoleAISignal, domain.RoleAI,
		domain.RoleListenSignal, domain.RoleTimeoutSignal, domain.RoleAI,
		domain.RoleEndSignal,
	}, roles(sent))
	assert.Equal(t, []string{"Hi, I am Eva.", "Are you still there?", session.SessionTimeoutText}, contents(sent))
	assert.Equal(t, "", s.Snapshot().CurrentNode())
	assert.Equal(t, domain.OutcomeTimeout, out.last().Outcome)
}

func TestRun_TimeoutRetryRecovers(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	ch := memory.NewChannel(32)

	var s *session.Session
	var afterRetry domain.Tracker
	listens := 0
	m := session.NewManager(session.WithHooks(domain.LifecycleHooks{
		OnListenTimeout: func(context.Context, *domain.NodeEvent) {
			require.NoError(t, ch.Say("bye"))
		},
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			if e.Message.User != domain.RoleListenSignal {
				return
			}
			listens++
			if listens == 2 {
				afterRetry = s.Snapshot()
			}
		},
	}))
	s = start(t, m, g, "late-answer")

	require.NoError(t, s.Run(context.Background(), ch))

	require.NotNil(t, afterRetry)
	assert.Equal(t, "ask", afterRetry.CurrentNode(), "first timeout stays on the listen node")
	assert.Equal(t, 1, afterRetry.TimeoutIters())

	assert.Equal(t, []domain.Role{
		domain.RoleAI,
		domain.RoleListenSignal, domain.RoleAISignal, domain.RoleAI,
		domain.RoleListenSignal, domain.RoleUser, domain.RoleAISignal,
		domain.RoleAI,
		domain.RoleEndSignal,
	}, roles(ch.Sent()))
	assert.Equal(t, 0, s.Snapshot().TimeoutIters(), "input resets the timeout counter")
}

func TestRun_NoMatchingBranch(t *testing.T) {
	doc := `
start:
  class: startNode
  data: {text: "Welcome"}
  outputs: {output_1: {connections: [{node: check}]}}
check:
  class: ifNode
  data: {variable: origin, condition: equals, type: text, value: web}
  outputs: {output_1: {connections: [{node: "yes"}, {node: other}]}}
"yes":
  class: intentNode
  data: {intent: "yes"}
other:
  class: textNode
  data: {text: "unlabelled"}
`
	g := buildGraph(t, doc, handler.Deps{})
	out := &outcomes{}
	m := session.NewManager(session.WithHooks(out.hooks()))
	s := start(t, m, g, "lost")

	ch := memory.NewChannel(8)
	err := s.Run(context.Background(), ch)

	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, "check", routeErr.NodeID)
	assert.Equal(t, domain.IntentNo, routeErr.Intent)

	assert.Equal(t, []domain.Role{domain.RoleAI, domain.RoleErrorSignal, domain.RoleEndSignal}, roles(ch.Sent()))
	assert.Equal(t, "", s.Snapshot().CurrentNode())
	assert.Equal(t, domain.OutcomeRouting, out.last().Outcome)
}

type failingClassifier struct{}

func (failingClassifier) Classify(context.Context, string, []string) (ports.Classification, error) {
	return ports.Classification{}, errors.New("classifier unavailable")
}

func TestRun_DeciderFailureEndsSession(t *testing.T) {
	doc := `
start:
  class: startNode
  data: {text: "Welcome"}
  outputs: {output_1: {connections: [{node: decide}]}}
decide:
  class: deciderNode
  data: {intents: '["a","b"]'}
  outputs: {output_1: {connections: [{node: a}, {node: b}]}}
a:
  class: intentNode
  data: {intent: a}
b:
  class: intentNode
  data: {intent: b}
`
	g := buildGraph(t, doc, handler.Deps{Classifier: failingClassifier{}})
	out := &outcomes{}
	m := session.NewManager(session.WithHooks(out.hooks()))
	s := start(t, m, g, "decider")

	ch := memory.NewChannel(8)
	err := s.Run(context.Background(), ch)

	var svcErr *domain.ExternalServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, []domain.Role{domain.RoleAI, domain.RoleErrorSignal}, roles(ch.Sent()))
	assert.Equal(t, domain.OutcomeError, out.last().Outcome)
	assert.Equal(t, err, out.last().Err)
}

func TestRun_TemplateErrorEndsSession(t *testing.T) {
	doc := `
start:
  class: startNode
  data: {text: "Hello {nickname}"}
`
	g := buildGraph(t, doc, handler.Deps{})
	s := start(t, session.NewManager(), g, "template")

	ch := memory.NewChannel(8)
	err := s.Run(context.Background(), ch)
	var tplErr *domain.TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Equal(t, "nickname", tplErr.Key)
}

func TestRun_Disconnect(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	ch := memory.NewChannel(8)
	out := &outcomes{}
	hooks := out.hooks()
	hooks.OnMessage = func(_ context.Context, e *domain.MessageEvent) {
		if e.Message.User == domain.RoleListenSignal {
			_ = ch.Close()
		}
	}
	s := start(t, session.NewManager(session.WithHooks(hooks)), g, "gone")

	err := s.Run(context.Background(), ch)
	assert.ErrorIs(t, err, domain.ErrChannelClosed)
	assert.Equal(t, domain.OutcomeDisconnected, out.last().Outcome)
	assert.Equal(t, "ask", s.Snapshot().CurrentNode())
}

func TestRun_ContextCancelled(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	ch := memory.NewChannel(8)
	s := start(t, session.NewManager(session.WithHooks(domain.LifecycleHooks{
		OnMessage: func(_ context.Context, e *domain.MessageEvent) {
			if e.Message.User == domain.RoleListenSignal {
				cancel()
			}
		},
	})), g, "cancelled")

	err := s.Run(ctx, ch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_RequiresInit(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	s, err := session.NewManager().Create(g, "", "web")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, session.StatusCreated, s.Status())

	assert.ErrorIs(t, s.Run(context.Background(), memory.NewChannel(1)), domain.ErrNotInitialized)
	require.NoError(t, s.Init())
	assert.Error(t, s.Init(), "init happens once")
}

func TestRun_ConcurrentSessions(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	chatlog := memory.NewChatLog()
	m := session.NewManager(session.WithChatLog(chatlog))

	const n = 25
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			s, err := m.Create(g, id, "web")
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, s.Init())

			ch := memory.NewChannel(32)
			assert.NoError(t, ch.Say(fmt.Sprintf("bye from %d", i)))
			assert.NoError(t, s.Run(context.Background(), ch))
			assert.NoError(t, m.End(context.Background(), id))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, m.Len())
	assert.Len(t, chatlog.Sessions(), n)
	assert.Len(t, chatlog.Messages(), n*3, "greeting, user input and goodbye per session")
}

const classifyFlow = `
start:
  class: startNode
  data: {text: "Hi"}
  outputs: {output_1: {connections: [{node: decide}]}}
decide:
  class: deciderNode
  data: {intents: '["greeting","bye"]'}
  outputs: {output_1: {connections: [{node: greeting}, {node: bye}]}}
greeting:
  class: intentNode
  data: {intent: greeting}
  outputs: {output_1: {connections: [{node: end}]}}
bye:
  class: intentNode
  data: {intent: bye}
  outputs: {output_1: {connections: [{node: end}]}}
end:
  class: endNode
  data: {text: "Done"}
`

// slowClassifier blocks every call until release is closed.
type slowClassifier struct {
	entered chan struct{}
	release chan struct{}
}

func (c *slowClassifier) Classify(ctx context.Context, _ string, labels []string) (ports.Classification, error) {
	close(c.entered)
	select {
	case <-c.release:
	case <-ctx.Done():
		return ports.Classification{}, ctx.Err()
	}
	return ports.Classification{Labels: labels, Scores: []float64{0.95, 0.05}}, nil
}

func TestRun_CollaboratorCallDoesNotBlockTracker(t *testing.T) {
	cls := &slowClassifier{entered: make(chan struct{}), release: make(chan struct{})}
	g := buildGraph(t, classifyFlow, handler.Deps{Classifier: cls})
	m := session.NewManager()
	s := start(t, m, g, "slow")

	ch := memory.NewChannel(16)
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(context.Background(), ch) }()

	select {
	case <-cls.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("classifier was never called")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Snapshot()
		_ = m.Update("slow", map[string]any{"nickname": "Ana"})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tracker stayed locked during the classifier call")
	}

	close(cls.release)
	require.NoError(t, <-runErr)

	snap := s.Snapshot()
	assert.Equal(t, "Ana", snap["nickname"], "updates made during the call survive")
	assert.Equal(t, "greeting", snap[domain.KeyCurrentIntent])
	assert.Equal(t, []string{"Hi", "Done"}, contents(ch.Sent()))
}

func TestPatch_FillsOnlyEmptyFields(t *testing.T) {
	g := buildGraph(t, echoFlow, handler.Deps{})
	m := session.NewManager()

	s, err := m.Create(g, "patch", "test")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Patch(map[string]any{"a": 1}, nil), domain.ErrNotInitialized)
	require.NoError(t, s.Init())

	require.NoError(t, s.Update(map[string]any{domain.KeyEmail: "kept@example.com"}))
	require.NoError(t, s.Patch(
		map[string]any{domain.KeyApplicationData: map[string]any{"sub": "new@example.com"}},
		map[string]any{domain.KeyEmail: "new@example.com", domain.KeyRole: "student"},
	))

	snap := s.Snapshot()
	assert.Equal(t, "kept@example.com", snap.String(domain.KeyEmail))
	assert.Equal(t, "student", snap.String(domain.KeyRole))
	assert.Equal(t, map[string]any{"sub": "new@example.com"}, snap[domain.KeyApplicationData])
}
