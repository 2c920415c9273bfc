package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

const defaultFallback = "Sorry, I don't know the answer to that question"

// Qa answers the user's question from the knowledge base.
type Qa struct {
	base
	cfg    qaConfig
	kb     ports.KnowledgeBase
	logger *slog.Logger
}

type qaConfig struct {
	commonConfig `mapstructure:",squash"`
	Collection   string  `mapstructure:"collection"`
	Question     string  `mapstructure:"question"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Model        string  `mapstructure:"model"`
	NumDocs      int     `mapstructure:"num_docs"`
	Generate     bool    `mapstructure:"generate"`
	Fallback     string  `mapstructure:"fallback"`
}

func newQa(id string, data map[string]any, deps Deps) (Handler, error) {
	cfg := qaConfig{
		Collection:  "tenantev",
		Question:    "{" + domain.KeyLastUtterance + "}",
		Temperature: 0.5,
		MaxTokens:   2000,
		Model:       "gpt-3.5-turbo",
		NumDocs:     5,
		Generate:    true,
		Fallback:    defaultFallback,
	}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	return &Qa{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeQa,
			SavingKeys: []string{domain.KeyLastResponse},
			Show:       true,
			Feedback:   true,
		})},
		cfg:    cfg,
		kb:     deps.KnowledgeBase,
		logger: loggerOrNop(deps.Logger),
	}, nil
}

func (h *Qa) Execute(ctx context.Context, _ any, tracker domain.Tracker) (Result, error) {
	question, err := Format(h.cfg.Question, tracker)
	if err != nil {
		return Result{}, err
	}
	answer, err := h.ask(ctx, question)
	if err != nil {
		h.logger.Warn("knowledge base query failed",
			"session_id", tracker.String(domain.KeySessionID),
			"collection", h.cfg.Collection,
			"err", err,
		)
		return Result{Intent: domain.IntentFail}, nil
	}
	return Result{Output: answer, Intent: domain.IntentSuccess}, nil
}

func (h *Qa) ask(ctx context.Context, question string) (string, error) {
	if h.kb == nil {
		return "", &domain.ExternalServiceError{Service: "knowledge base", Err: errors.New("not configured")}
	}
	res, err := h.kb.Query(ctx, ports.DocumentQuery{
		Collection: h.cfg.Collection,
		Question:   question,
		Model:      h.cfg.Model,
		ModelKwargs: ports.ModelKwargs{
			Temperature: h.cfg.Temperature,
			MaxTokens:   h.cfg.MaxTokens,
		},
		Generate:   h.cfg.Generate,
		NumResults: h.cfg.NumDocs,
	})
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "knowledge base", Err: err}
	}
	if len(res.Documents) == 0 {
		return h.cfg.Fallback, nil
	}
	return res.Answer, nil
}

func loggerOrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logging.NewNop()
	}
	return l
}
