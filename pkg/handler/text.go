package handler

import (
	"context"
	"math/rand/v2"

	"github.com/aretw0/parley/pkg/domain"
)

// Text emits one of its configured variants with tracker values substituted.
// Start and End nodes use the same behaviour under their own node type.
type Text struct {
	base
	variants []string
	pick     func(n int) int
}

type textConfig struct {
	commonConfig `mapstructure:",squash"`
	Text         []string `mapstructure:"text"`
}

func newTextOf(t domain.NodeType) Constructor {
	return func(id string, data map[string]any, _ Deps) (Handler, error) {
		var cfg textConfig
		if err := decodeData(id, data, &cfg); err != nil {
			return nil, err
		}
		if len(cfg.Text) == 0 {
			return nil, &domain.ConfigError{NodeID: id, Reason: "text node needs at least one text"}
		}
		return NewText(t, cfg.Text, cfg.meta(Meta{
			SavingKeys: []string{domain.KeyLastResponse},
			Show:       true,
		})), nil
	}
}

// NewText builds a Text handler directly. meta.Type is overwritten by t.
func NewText(t domain.NodeType, variants []string, meta Meta) *Text {
	meta.Type = t
	return &Text{base: base{meta: meta}, variants: variants, pick: rand.IntN}
}

func (h *Text) Execute(_ context.Context, _ any, tracker domain.Tracker) (Result, error) {
	tpl := h.variants[0]
	if len(h.variants) > 1 {
		tpl = h.variants[h.pick(len(h.variants))]
	}
	out, err := Format(tpl, tracker)
	if err != nil {
		return Result{}, err
	}
	return Result{Output: out}, nil
}
