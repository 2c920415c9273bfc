package handler

import (
	"context"
	"regexp"

	"github.com/aretw0/parley/pkg/domain"
)

var validators = map[string]*regexp.Regexp{
	"email": regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`),
	"id":    regexp.MustCompile(`^[0-9]{4,6}$`),
}

// Validator checks a tracker field against a known format.
type Validator struct {
	base
	kind     string
	variable string
	re       *regexp.Regexp
}

type validatorConfig struct {
	commonConfig `mapstructure:",squash"`
	Type         string `mapstructure:"type"`
	Variable     string `mapstructure:"variable"`
}

func newValidator(id string, data map[string]any, _ Deps) (Handler, error) {
	cfg := validatorConfig{Type: "email", Variable: domain.KeyLastUtterance}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	re, ok := validators[cfg.Type]
	if !ok {
		return nil, &domain.ConfigError{NodeID: id, Reason: "unknown validator type " + cfg.Type}
	}
	return &Validator{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeValidator,
			SavingKeys: []string{domain.KeyCurrentIntent},
		})},
		kind:     cfg.Type,
		variable: cfg.Variable,
		re:       re,
	}, nil
}

func (h *Validator) Execute(_ context.Context, _ any, tracker domain.Tracker) (Result, error) {
	v, ok := tracker[h.variable]
	if !ok {
		return Result{}, &domain.TemplateError{Key: h.variable}
	}
	s, ok := v.(string)
	if ok && h.re.MatchString(s) {
		return Result{Intent: domain.IntentValid}, nil
	}
	return Result{Intent: domain.IntentFail}, nil
}
