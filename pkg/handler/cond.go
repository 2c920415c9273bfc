package handler

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Conditions an If node may apply.
const (
	CondEquals      = "equals"
	CondNotEquals   = "not_equals"
	CondContains    = "contains"
	CondNotContains = "not_contains"
	CondGreaterThan = "greater_than"
	CondLessThan    = "less_than"
)

// If compares a tracker variable with a typed literal and answers "yes" or "no".
// Comparison is case-sensitive.
type If struct {
	base
	variable  string
	condition string
	typ       string
	value     string
}

type ifConfig struct {
	commonConfig `mapstructure:",squash"`
	Variable     []string `mapstructure:"variable"`
	Condition    string   `mapstructure:"condition"`
	Type         string   `mapstructure:"type"`
	Value        string   `mapstructure:"value"`
}

func newIf(id string, data map[string]any, _ Deps) (Handler, error) {
	cfg := ifConfig{Condition: CondEquals, Type: TypeText}
	if err := decodeData(id, data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Variable) == 0 {
		return nil, &domain.ConfigError{NodeID: id, Reason: "if node needs a variable"}
	}
	switch cfg.Condition {
	case CondEquals, CondNotEquals, CondContains, CondNotContains, CondGreaterThan, CondLessThan:
	default:
		return nil, &domain.ConfigError{NodeID: id, Reason: "unknown condition " + cfg.Condition}
	}
	if !validValueType(cfg.Type) {
		return nil, &domain.ConfigError{NodeID: id, Reason: "unknown value type " + cfg.Type}
	}
	return NewIf(cfg.Variable[0], cfg.Condition, cfg.Type, cfg.Value, cfg.meta(Meta{
		SavingKeys: []string{domain.KeyCurrentIntent},
	})), nil
}

// NewIf builds an If handler directly. Arguments are not validated.
func NewIf(variable, condition, typ, value string, meta Meta) *If {
	meta.Type = domain.NodeTypeIf
	return &If{base: base{meta: meta}, variable: variable, condition: condition, typ: typ, value: value}
}

func (h *If) Execute(_ context.Context, _ any, tracker domain.Tracker) (Result, error) {
	literal, err := coerce(h.value, h.typ)
	if err != nil {
		return Result{}, err
	}
	actual, ok := tracker[h.variable]
	if !ok {
		return Result{}, &domain.TemplateError{Key: h.variable}
	}
	ok, err = compare(h.condition, actual, literal)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return Result{Intent: domain.IntentYes}, nil
	}
	return Result{Intent: domain.IntentNo}, nil
}

func compare(condition string, actual, literal any) (bool, error) {
	switch condition {
	case CondEquals:
		return equal(actual, literal), nil
	case CondNotEquals:
		return !equal(actual, literal), nil
	case CondContains:
		return contains(actual, literal)
	case CondNotContains:
		found, err := contains(actual, literal)
		return !found, err
	case CondGreaterThan, CondLessThan:
		a, b, err := ordered(actual, literal)
		if err != nil {
			return false, err
		}
		if condition == CondGreaterThan {
			return a > b, nil
		}
		return a < b, nil
	}
	return false, fmt.Errorf("unknown condition %q", condition)
}

func equal(a, b any) bool {
	if x, ok := toNumber(a); ok {
		if y, ok := toNumber(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func contains(actual, literal any) (bool, error) {
	needle, ok := literal.(string)
	if !ok {
		return false, &domain.TypeCoercionError{Value: literal, Type: TypeText}
	}
	switch hay := actual.(type) {
	case string:
		return strings.Contains(hay, needle), nil
	case []string:
		for _, s := range hay {
			if s == needle {
				return true, nil
			}
		}
		return false, nil
	case []any:
		for _, v := range hay {
			if s, ok := v.(string); ok && s == needle {
				return true, nil
			}
		}
		return false, nil
	}
	return false, &domain.TypeCoercionError{Value: actual, Type: TypeText}
}

func ordered(actual, literal any) (float64, float64, error) {
	if _, isText := literal.(string); isText {
		return 0, 0, &domain.TypeCoercionError{Value: literal, Type: TypeNumber}
	}
	a, ok := orderable(actual)
	if !ok {
		return 0, 0, &domain.TypeCoercionError{Value: actual, Type: TypeNumber}
	}
	b, _ := orderable(literal)
	return a, b, nil
}

// orderable reads numbers; booleans order as 0 and 1.
func orderable(v any) (float64, bool) {
	if b, ok := v.(bool); ok {
		if b {
			return 1, true
		}
		return 0, true
	}
	return toNumber(v)
}
