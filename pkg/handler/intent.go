package handler

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Intent marks a branch. It always returns its label as the intent.
type Intent struct {
	base
	label string
}

type intentConfig struct {
	commonConfig `mapstructure:",squash"`
	Intent       string `mapstructure:"intent"`
}

func newIntent(id string, data map[string]any, _ Deps) (Handler, error) {
	var cfg intentConfig
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Intent == "" {
		return nil, &domain.ConfigError{NodeID: id, Reason: "intent node needs an intent label"}
	}
	return &Intent{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeIntent,
			SavingKeys: []string{domain.KeyCurrentIntent},
		})},
		label: cfg.Intent,
	}, nil
}

// Label is the intent this node answers to.
func (h *Intent) Label() string { return h.label }

func (h *Intent) Execute(context.Context, any, domain.Tracker) (Result, error) {
	return Result{Intent: h.label}, nil
}
