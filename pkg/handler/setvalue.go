package handler

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// SetValue formats a template and stores it as text, number or boolean.
type SetValue struct {
	base
	value string
	typ   string
}

type setValueConfig struct {
	commonConfig `mapstructure:",squash"`
	Value        string `mapstructure:"value"`
	Type         string `mapstructure:"type"`
}

func newSetValue(id string, data map[string]any, _ Deps) (Handler, error) {
	cfg := setValueConfig{Type: TypeText}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if !validValueType(cfg.Type) {
		return nil, &domain.ConfigError{NodeID: id, Reason: "unknown value type " + cfg.Type}
	}
	return &SetValue{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeSetValue,
			SavingKeys: []string{domain.KeyLastUtterance},
		})},
		value: cfg.Value,
		typ:   cfg.Type,
	}, nil
}

func (h *SetValue) Execute(_ context.Context, _ any, tracker domain.Tracker) (Result, error) {
	raw, err := Format(h.value, tracker)
	if err != nil {
		return Result{}, err
	}
	v, err := coerce(raw, h.typ)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: v}, nil
}
