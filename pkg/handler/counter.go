package handler

import (
	"context"

	"github.com/aretw0/parley/pkg/domain"
)

// Counter adds a delta to the number stored under its first saving key.
type Counter struct {
	base
	add float64
}

type counterConfig struct {
	commonConfig `mapstructure:",squash"`
	Add          float64 `mapstructure:"add"`
}

func newCounter(id string, data map[string]any, _ Deps) (Handler, error) {
	cfg := counterConfig{Add: 1}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	meta := cfg.meta(Meta{Type: domain.NodeTypeCounter})
	if len(meta.SavingKeys) == 0 {
		return nil, &domain.ConfigError{NodeID: id, Reason: "counter node needs a saving key"}
	}
	return &Counter{base: base{meta: meta}, add: cfg.Add}, nil
}

func (h *Counter) Execute(_ context.Context, _ any, tracker domain.Tracker) (Result, error) {
	key := h.meta.SavingKeys[0]
	v, ok := tracker[key]
	if !ok {
		return Result{}, &domain.TemplateError{Key: key}
	}
	n, ok := toNumber(v)
	if !ok {
		return Result{}, &domain.TypeCoercionError{Value: v, Type: TypeNumber}
	}
	return Result{Output: n + h.add}, nil
}
