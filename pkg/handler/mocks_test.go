package handler

import (
	"context"
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct{ mock.Mock }

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) (ports.Classification, error) {
	args := m.Called(ctx, text, labels)
	return args.Get(0).(ports.Classification), args.Error(1)
}

type mockKnowledgeBase struct{ mock.Mock }

func (m *mockKnowledgeBase) Query(ctx context.Context, q ports.DocumentQuery) (ports.DocumentAnswer, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(ports.DocumentAnswer), args.Error(1)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, q ports.GenerateQuery) (string, error) {
	args := m.Called(ctx, q)
	return args.String(0), args.Error(1)
}

type mockTicketing struct{ mock.Mock }

func (m *mockTicketing) CreateTicket(ctx context.Context, req ports.TicketRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockChatLog struct{ mock.Mock }

func (m *mockChatLog) SaveMessages(ctx context.Context, msgs []domain.MessageRecord) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockChatLog) SaveSession(ctx context.Context, rec domain.SessionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockChatLog) SaveTicket(ctx context.Context, rec domain.TicketRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockChatLog) SaveFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func build(t *testing.T, class string, data map[string]any, deps Deps) Handler {
	t.Helper()
	h, err := NewRegistry(deps).Build("node-1", class, data)
	require.NoError(t, err)
	return h
}

func tracker(kv ...any) domain.Tracker {
	tr := domain.NewTracker(domain.TrackerSeed{SessionID: "sess-1", Origin: "test"})
	for i := 0; i+1 < len(kv); i += 2 {
		tr[kv[i].(string)] = kv[i+1]
	}
	return tr
}
