package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/adapters/rest"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

var (
	_ ports.Classifier    = (*rest.Classifier)(nil)
	_ ports.KnowledgeBase = (*rest.KnowledgeBase)(nil)
	_ ports.Generator     = (*rest.KnowledgeBase)(nil)
	_ ports.Ticketing     = (*rest.Freshdesk)(nil)
	_ ports.ChatLog       = (*rest.ChatLog)(nil)
)

type captured struct {
	method string
	path   string
	auth   string
	body   map[string]any
	raw    []byte
}

// serve answers every request with status and reply, recording the last request.
func serve(t *testing.T, status int, reply any) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		var raw json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&raw)
		got.raw = raw
		got.body = nil
		_ = json.Unmarshal(raw, &got.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestClassifier(t *testing.T) {
	srv, got := serve(t, http.StatusOK, map[string]any{
		"labels": []string{"billing", "greeting"},
		"scores": []float64{0.9, 0.1},
	})
	c := rest.NewClassifier(rest.Endpoint{URL: srv.URL, Token: "secret"})
	defer c.Close()

	res, err := c.Classify(context.Background(), "my invoice", []string{"greeting", "billing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"billing", "greeting"}, res.Labels)
	assert.Equal(t, []float64{0.9, 0.1}, res.Scores)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/classify", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "my invoice", got.body["text"])
	assert.Equal(t, false, got.body["multi_label"])
}

func TestClassifier_StatusError(t *testing.T) {
	srv, _ := serve(t, http.StatusInternalServerError, map[string]any{"detail": "boom"})
	c := rest.NewClassifier(rest.Endpoint{URL: srv.URL})

	_, err := c.Classify(context.Background(), "x", []string{"a"})
	var se *rest.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
}

func TestKnowledgeBase_Query(t *testing.T) {
	srv, got := serve(t, http.StatusOK, map[string]any{
		"answer":    "Open settings.",
		"documents": []map[string]any{{"page_content": "settings", "score": 0.7}},
	})
	kb := rest.NewKnowledgeBase(rest.Endpoint{URL: srv.URL, Token: "kb"})

	ans, err := kb.Query(context.Background(), ports.DocumentQuery{
		Collection:  "tenantev",
		Question:    "how?",
		Model:       "gpt-3.5-turbo",
		ModelKwargs: ports.ModelKwargs{Temperature: 0.5, MaxTokens: 2000},
		Generate:    true,
		NumResults:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Open settings.", ans.Answer)
	require.Len(t, ans.Documents, 1)
	assert.Equal(t, "settings", ans.Documents[0].PageContent)

	assert.Equal(t, "/kb/tenantev/query", got.path)
	assert.Equal(t, "how?", got.body["question"])
	assert.Equal(t, float64(5), got.body["num_results"])
	assert.NotContains(t, got.body, "Collection")
	kwargs, ok := got.body["llm_model_kwargs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2000), kwargs["max_tokens"])
}

func TestKnowledgeBase_Generate(t *testing.T) {
	srv, got := serve(t, http.StatusOK, map[string]any{"answer": "A summary."})
	kb := rest.NewKnowledgeBase(rest.Endpoint{URL: srv.URL})

	out, err := kb.Generate(context.Background(), ports.GenerateQuery{SystemPrompt: "Summarise", HumanPrompt: "text"})
	require.NoError(t, err)
	assert.Equal(t, "A summary.", out)
	assert.Equal(t, "/generate", got.path)
	assert.Equal(t, "Summarise", got.body["system_prompt"])
}

func TestKnowledgeBase_ContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	kb := rest.NewKnowledgeBase(rest.Endpoint{URL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := kb.Generate(ctx, ports.GenerateQuery{})
	assert.Error(t, err)
}

func TestFreshdesk_CreateTicket(t *testing.T) {
	srv, got := serve(t, http.StatusCreated, map[string]any{"id": 4711})
	fd := rest.NewFreshdesk(rest.FreshdeskConfig{APIKey: "key", Password: "X", BaseURL: srv.URL})

	id, err := fd.CreateTicket(context.Background(), ports.TicketRequest{
		Subject:     "Chatbot Ticket from ana@example.com",
		Description: "<p>hi</p>",
		Email:       "ana@example.com",
		Name:        "Ana",
		Platform:    "Billing",
	})
	require.NoError(t, err)
	assert.Equal(t, "4711", id)

	assert.Equal(t, "/api/v2/tickets", got.path)
	assert.Equal(t, "Basic a2V5Olg=", got.auth)
	assert.Equal(t, float64(1), got.body["priority"])
	assert.Equal(t, float64(2), got.body["status"])
	assert.Equal(t, float64(7), got.body["source"])
	assert.Equal(t, map[string]any{"cf_type_of_query_2": "Billing", "cf_sub_category": "Other"}, got.body["custom_fields"])
}

func TestFreshdesk_ZeroIDFails(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, map[string]any{"id": 0})
	fd := rest.NewFreshdesk(rest.FreshdeskConfig{BaseURL: srv.URL})

	_, err := fd.CreateTicket(context.Background(), ports.TicketRequest{})
	assert.Error(t, err)
}

func TestChatLog(t *testing.T) {
	srv, got := serve(t, http.StatusOK, map[string]any{})
	log := rest.NewChatLog(rest.Endpoint{URL: srv.URL, Token: "log"})
	ctx := context.Background()

	msgs := []domain.MessageRecord{{MessageID: "m1", SessionID: "s1", Exchange: "hi", MessageType: domain.RoleUser}}
	require.NoError(t, log.SaveMessages(ctx, msgs))
	assert.Equal(t, "/messages", got.path)
	var sent []map[string]any
	require.NoError(t, json.Unmarshal(got.raw, &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "hi", sent[0]["exchange"])
	assert.Equal(t, "USER", sent[0]["message_type"])

	require.NoError(t, log.SaveSession(ctx, domain.SessionRecord{SessionID: "s1", Origin: "web"}))
	assert.Equal(t, "/sessions", got.path)
	assert.Equal(t, "web", got.body["origin"])

	require.NoError(t, log.SaveTicket(ctx, domain.TicketRecord{SessionID: "s1", TicketID: "9"}))
	assert.Equal(t, "/tickets", got.path)

	require.NoError(t, log.SaveFeedback(ctx, domain.FeedbackRecord{SessionID: "s1", Feedback: "good"}))
	assert.Equal(t, "/feedback", got.path)
	assert.Equal(t, "Bearer log", got.auth)
}

func TestChatLog_Failure(t *testing.T) {
	srv, _ := serve(t, http.StatusUnauthorized, map[string]any{"detail": "no"})
	log := rest.NewChatLog(rest.Endpoint{URL: srv.URL})

	err := log.SaveSession(context.Background(), domain.SessionRecord{SessionID: "s1"})
	var se *rest.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Status)
}
