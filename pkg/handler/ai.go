package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Ai asks the generation service for a free-form answer.
type Ai struct {
	base
	cfg       aiConfig
	generator ports.Generator
	logger    *slog.Logger
}

type aiConfig struct {
	commonConfig  `mapstructure:",squash"`
	Instruction   string  `mapstructure:"instruction"`
	SystemMessage string  `mapstructure:"system_message"`
	Temperature   float64 `mapstructure:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"`
	Model         string  `mapstructure:"model"`
}

func newAi(id string, data map[string]any, deps Deps) (Handler, error) {
	cfg := aiConfig{
		Temperature: 0.5,
		MaxTokens:   2000,
		Model:       "gpt-3.5-turbo",
	}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Instruction == "" && cfg.SystemMessage == "" {
		return nil, &domain.ConfigError{NodeID: id, Reason: "ai node needs an instruction or a system message"}
	}
	return &Ai{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeAi,
			SavingKeys: []string{domain.KeyLastResponse},
			Show:       true,
		})},
		cfg:       cfg,
		generator: deps.Generator,
		logger:    loggerOrNop(deps.Logger),
	}, nil
}

func (h *Ai) Execute(ctx context.Context, _ any, tracker domain.Tracker) (Result, error) {
	instruction, err := Format(h.cfg.Instruction, tracker)
	if err != nil {
		return Result{}, err
	}
	message, err := Format(h.cfg.SystemMessage, tracker)
	if err != nil {
		return Result{}, err
	}
	answer, err := h.generate(ctx, instruction, message)
	if err != nil {
		h.logger.Warn("generation failed",
			"session_id", tracker.String(domain.KeySessionID),
			"model", h.cfg.Model,
			"err", err,
		)
		return Result{Intent: domain.IntentFail}, nil
	}
	return Result{Output: answer, Intent: domain.IntentSuccess}, nil
}

func (h *Ai) generate(ctx context.Context, instruction, message string) (string, error) {
	if h.generator == nil {
		return "", &domain.ExternalServiceError{Service: "generator", Err: errors.New("not configured")}
	}
	answer, err := h.generator.Generate(ctx, ports.GenerateQuery{
		SystemPrompt: instruction,
		HumanPrompt:  message,
		Model:        h.cfg.Model,
		ModelKwargs: ports.ModelKwargs{
			Temperature: h.cfg.Temperature,
			MaxTokens:   h.cfg.MaxTokens,
		},
	})
	if err != nil {
		return "", &domain.ExternalServiceError{Service: "generator", Err: err}
	}
	return answer, nil
}
