package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Value types a SetValue or If node may declare.
const (
	TypeText    = "text"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

func validValueType(t string) bool {
	switch t {
	case TypeText, TypeNumber, TypeBoolean:
		return true
	}
	return false
}

// coerce converts raw text to the declared value type.
// Booleans accept "true" and "false" in any case; anything else is rejected.
func coerce(raw, typ string) (any, error) {
	switch typ {
	case TypeText:
		return raw, nil
	case TypeNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &domain.TypeCoercionError{Value: raw, Type: TypeNumber}
		}
		return f, nil
	case TypeBoolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, &domain.TypeCoercionError{Value: raw, Type: TypeBoolean}
	}
	return nil, &domain.TypeCoercionError{Value: raw, Type: typ}
}

// toNumber reads numeric tracker values, whatever their Go type.
func toNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
