package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Decider classifies the last utterance against its labels.
// Classifier failures are returned to the caller and end the session.
type Decider struct {
	base
	labels     []string
	classifier ports.Classifier
}

type deciderConfig struct {
	commonConfig `mapstructure:",squash"`
	Intents      []string `mapstructure:"intents"`
}

func newDecider(id string, data map[string]any, deps Deps) (Handler, error) {
	var cfg deciderConfig
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Intents) == 0 {
		return nil, &domain.ConfigError{NodeID: id, Reason: "decider node needs at least one intent"}
	}
	return NewDecider(cfg.Intents, deps.Classifier, cfg.meta(Meta{
		SavingKeys: []string{domain.KeyCurrentIntent},
	})), nil
}

// NewDecider builds a Decider directly.
func NewDecider(labels []string, classifier ports.Classifier, meta Meta) *Decider {
	meta.Type = domain.NodeTypeDecider
	return &Decider{base: base{meta: meta}, labels: labels, classifier: classifier}
}

// Threshold is the score the best label must exceed: 1/n + 1/2n + 1/4n.
func Threshold(n int) float64 {
	unit := 1 / float64(n)
	return unit + unit/2 + unit/4
}

func (h *Decider) Execute(ctx context.Context, _ any, tracker domain.Tracker) (Result, error) {
	if h.classifier == nil {
		return Result{}, &domain.ExternalServiceError{Service: "classifier", Err: errors.New("not configured")}
	}

	res, err := h.classifier.Classify(ctx, stringify(tracker[domain.KeyLastUtterance]), h.labels)
	if err != nil {
		return Result{}, &domain.ExternalServiceError{Service: "classifier", Err: err}
	}
	if len(res.Scores) == 0 || len(res.Scores) != len(res.Labels) {
		return Result{}, &domain.ExternalServiceError{
			Service: "classifier",
			Err:     fmt.Errorf("malformed answer: %d labels, %d scores", len(res.Labels), len(res.Scores)),
		}
	}

	best := 0
	for i, s := range res.Scores {
		if s > res.Scores[best] {
			best = i
		}
	}
	if res.Scores[best] > Threshold(len(h.labels)) {
		return Result{Intent: res.Labels[best]}, nil
	}
	return Result{Intent: domain.IntentFail}, nil
}
