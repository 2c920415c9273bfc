package handler

import (
	"context"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// Listen passes user input through unchanged.
// The session waits up to Timeout for that input and sends TimeoutMessage on the first miss.
type Listen struct {
	base
	Timeout        time.Duration
	TimeoutMessage string
}

type listenConfig struct {
	commonConfig   `mapstructure:",squash"`
	TimeoutMessage string  `mapstructure:"timeout"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
}

func newListen(id string, data map[string]any, _ Deps) (Handler, error) {
	var cfg listenConfig
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if cfg.TimeoutSeconds < 0 {
		return nil, &domain.ConfigError{NodeID: id, Reason: "timeout_seconds must not be negative"}
	}
	h := &Listen{
		base: base{meta: cfg.meta(Meta{
			Type:       domain.NodeTypeListen,
			SavingKeys: []string{domain.KeyLastUtterance},
			Show:       true,
		})},
		Timeout:        time.Duration(cfg.TimeoutSeconds * float64(time.Second)),
		TimeoutMessage: cfg.TimeoutMessage,
	}
	return h, nil
}

func (h *Listen) Execute(_ context.Context, value any, _ domain.Tracker) (Result, error) {
	return Result{Output: value}, nil
}
