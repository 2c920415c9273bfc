package handler

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// commonConfig holds the fields any node may override.
type commonConfig struct {
	SavingKeys []string         `mapstructure:"saving_keys"`
	Show       *bool            `mapstructure:"show"`
	Feedback   *bool            `mapstructure:"feedback"`
	Elements   []domain.Element `mapstructure:"elements"`
}

func (c commonConfig) meta(defaults Meta) Meta {
	m := defaults
	if len(c.SavingKeys) > 0 {
		m.SavingKeys = c.SavingKeys
	}
	if c.Show != nil {
		m.Show = *c.Show
	}
	if c.Feedback != nil {
		m.Feedback = *c.Feedback
	}
	if len(c.Elements) > 0 {
		m.Elements = make([]domain.Element, len(c.Elements))
		for i, e := range c.Elements {
			m.Elements[i] = e.WithDefaults()
		}
	}
	return m
}

// decodeData maps raw node data onto a typed config.
// The workflow editor stores lists and objects as JSON strings and booleans as
// "yes"/"no"; both are accepted alongside native values.
func decodeData(nodeID string, data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(editorValueHook),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return &domain.ConfigError{NodeID: nodeID, Reason: "decoder setup", Err: err}
	}
	if err := dec.Decode(data); err != nil {
		return &domain.ConfigError{NodeID: nodeID, Reason: "bad node data", Err: err}
	}
	return nil
}

func editorValueHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))

	switch to.Kind() {
	case reflect.Slice:
		if s == "" {
			return []any{}, nil
		}
		if strings.HasPrefix(s, "[") {
			var v []any
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v, nil
			}
		}
	case reflect.Map, reflect.Struct:
		if s == "" {
			return map[string]any{}, nil
		}
		if strings.HasPrefix(s, "{") {
			var v map[string]any
			if err := json.Unmarshal([]byte(s), &v); err == nil {
				return v, nil
			}
		}
	case reflect.Bool:
		switch strings.ToLower(s) {
		case "yes":
			return true, nil
		case "no", "":
			return false, nil
		}
	}
	return data, nil
}
