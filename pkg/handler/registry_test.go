package handler

import (
	"testing"
	"time"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UnknownClass(t *testing.T) {
	_, err := NewRegistry(Deps{}).Build("n9", "carouselNode", nil)

	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "n9", cfgErr.NodeID)
	assert.Contains(t, cfgErr.Error(), "carouselNode")
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry(Deps{})

	typ, ok := r.Resolve("listenerNode")
	assert.True(t, ok)
	assert.Equal(t, domain.NodeTypeListen, typ)

	typ, ok = r.Resolve("counter")
	assert.True(t, ok, "bare type names are accepted as classes")
	assert.Equal(t, domain.NodeTypeCounter, typ)

	_, ok = r.Resolve("nope")
	assert.False(t, ok)
}

func TestRegistry_EveryClassBuildsWithMinimalData(t *testing.T) {
	minimal := map[string]map[string]any{
		"startNode":     {"text": "hi"},
		"textNode":      {"text": "hi"},
		"endNode":       {"text": "bye"},
		"listenerNode":  {},
		"deciderNode":   {"intents": `["a","b"]`},
		"intentNode":    {"intent": "a"},
		"qaNode":        {},
		"aiNode":        {"instruction": "be nice"},
		"validatorNode": {"type": "id"},
		"setValueNode":  {"value": "x"},
		"counterNode":   {"saving_keys": `["n"]`},
		"ifNode":        {"variable": `["x"]`},
		"ticketNode":    {},
	}
	require.Len(t, minimal, len(Classes()))

	r := NewRegistry(Deps{})
	for _, class := range Classes() {
		h, err := r.Build("n1", class, minimal[class])
		require.NoError(t, err, class)
		typ, _ := r.Resolve(class)
		assert.Equal(t, typ, h.Meta().Type, class)
	}
}

func TestRegistry_EditorEncodedData(t *testing.T) {
	h := build(t, "listenerNode", map[string]any{
		"saving_keys":     `["email", "last_utterance"]`,
		"elements":        `[{"type":"button","label":"Yes","value":"yes"}]`,
		"timeout":         "Are you still there?",
		"timeout_seconds": "30",
	}, Deps{})

	listen := h.(*Listen)
	meta := listen.Meta()
	assert.Equal(t, []string{"email", "last_utterance"}, meta.SavingKeys)
	require.Len(t, meta.Elements, 1)
	assert.Equal(t, domain.Element{
		Type:            "button",
		Label:           "Yes",
		Value:           "yes",
		BackgroundColor: domain.DefaultBackgroundColor,
		TextColor:       domain.DefaultTextColor,
	}, meta.Elements[0])
	assert.Equal(t, "Are you still there?", listen.TimeoutMessage)
	assert.Equal(t, 30*time.Second, listen.Timeout)
}

func TestRegistry_EmptyElementsString(t *testing.T) {
	h := build(t, "listenerNode", map[string]any{"saving_keys": `["name"]`, "elements": ""}, Deps{})
	assert.Empty(t, h.Meta().Elements)
	assert.Equal(t, []string{"name"}, h.Meta().SavingKeys)
}

func TestRegistry_ShowYesNo(t *testing.T) {
	shown := build(t, "aiNode", map[string]any{"instruction": "x", "show": "yes"}, Deps{})
	hidden := build(t, "aiNode", map[string]any{"instruction": "x", "show": "no"}, Deps{})

	assert.True(t, shown.Meta().Show)
	assert.False(t, hidden.Meta().Show)
}

func TestRegistry_Defaults(t *testing.T) {
	tests := []struct {
		class    string
		data     map[string]any
		keys     []string
		show     bool
		feedback bool
	}{
		{"textNode", map[string]any{"text": "hi"}, []string{domain.KeyLastResponse}, true, false},
		{"listenerNode", nil, []string{domain.KeyLastUtterance}, true, false},
		{"deciderNode", map[string]any{"intents": `["a"]`}, []string{domain.KeyCurrentIntent}, false, false},
		{"qaNode", nil, []string{domain.KeyLastResponse}, true, true},
		{"validatorNode", nil, []string{domain.KeyCurrentIntent}, false, false},
		{"ticketNode", nil, []string{domain.KeyTicketResponse}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			meta := build(t, tt.class, tt.data, Deps{}).Meta()
			assert.Equal(t, tt.keys, meta.SavingKeys)
			assert.Equal(t, tt.show, meta.Show)
			assert.Equal(t, tt.feedback, meta.Feedback)
		})
	}
}

func TestRegistry_InvalidConfig(t *testing.T) {
	tests := []struct {
		class string
		data  map[string]any
	}{
		{"textNode", map[string]any{}},
		{"deciderNode", map[string]any{"intents": "[]"}},
		{"intentNode", map[string]any{}},
		{"validatorNode", map[string]any{"type": "phone"}},
		{"setValueNode", map[string]any{"type": "date"}},
		{"ifNode", map[string]any{"variable": `["x"]`, "condition": "matches"}},
		{"ifNode", map[string]any{"variable": `["x"]`, "type": "list"}},
		{"ifNode", map[string]any{}},
		{"aiNode", map[string]any{}},
		{"listenerNode", map[string]any{"timeout_seconds": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			_, err := NewRegistry(Deps{}).Build("bad", tt.class, tt.data)
			var cfgErr *domain.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
