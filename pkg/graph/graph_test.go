package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/handler"
)

func loadFixture(t *testing.T, name string) *Graph {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	doc, err := ParseDocument(raw)
	require.NoError(t, err)
	g, err := Build(doc, handler.NewRegistry(handler.Deps{}))
	require.NoError(t, err)
	return g
}

func TestBuild_Envelope(t *testing.T) {
	g := loadFixture(t, "support.json")

	assert.Equal(t, 6, g.Len())
	_, ok := g.Node("1")
	assert.False(t, ok, "start node keeps no trace of its document id")

	start := g.Start()
	require.NotNil(t, start)
	assert.Equal(t, domain.StartNodeID, start.ID)
	assert.Equal(t, domain.StartNodeID, start.Name)
	assert.Equal(t, domain.NodeTypeStart, start.Type)
	assert.Equal(t, []string{"2"}, start.Children)
	assert.Equal(t, 10.0, start.PosX)

	listen, _ := g.Node("2")
	assert.Equal(t, domain.NodeTypeListen, listen.Type)
	assert.Equal(t, []string{domain.StartNodeID}, listen.Parents, "references to the start node are renamed")

	branch, _ := g.Node("3")
	assert.Equal(t, []string{"4", "5"}, branch.Children)

	ids := make([]string, 0, g.Len())
	for _, n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{domain.StartNodeID, "2", "3", "4", "5", "6"}, ids)
}

func TestBuild_YAML(t *testing.T) {
	g := loadFixture(t, "greeting.yaml")

	assert.Equal(t, 3, g.Len())
	assert.Equal(t, []string{"ask"}, g.Start().Children)

	bye, ok := g.Node("bye")
	require.True(t, ok)
	assert.Equal(t, domain.NodeTypeEnd, bye.Type)
}

func TestParseDocument_NumericAndStringIDs(t *testing.T) {
	doc, err := ParseDocument([]byte(`{
		"a": {"id": 10, "class": "startNode", "data": {"text": "hi"}},
		"b": {"id": "b", "class": "endNode", "data": {"text": "bye"}},
		"c": {"class": "endNode", "data": {"text": "bye"}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "b", "c"}, doc.IDs())
}

func TestBuild_PreservesDuplicateEdges(t *testing.T) {
	doc := &Document{Nodes: map[string]Record{
		"s": {Class: "startNode", Data: map[string]any{"text": "hi"}, Outputs: map[string]Slot{
			"output_1": {Connections: []Connection{{Node: "e"}, {Node: "e"}}},
		}},
		"e": {Class: "endNode", Data: map[string]any{"text": "bye"}},
	}}
	for k, r := range doc.Nodes {
		r.ID = ID(k)
		doc.Nodes[k] = r
	}

	g, err := Build(doc, handler.NewRegistry(handler.Deps{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "e"}, g.Start().Children)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"No Start", `{"1": {"class": "endNode", "data": {"text": "x"}}}`},
		{"Two Starts", `{"1": {"class": "startNode", "data": {"text": "x"}}, "2": {"class": "startNode", "data": {"text": "y"}}}`},
		{"Unknown Class", `{"1": {"class": "startNode", "data": {"text": "x"}}, "2": {"class": "videoNode"}}`},
		{"Dangling Edge", `{"1": {"class": "startNode", "data": {"text": "x"}, "outputs": {"output_1": {"connections": [{"node": "9"}]}}}}`},
		{"Bad Handler Data", `{"1": {"class": "startNode", "data": {}}}`},
		{"Sentinel Collision", `{"1": {"class": "startNode", "data": {"text": "x"}}, "start00000000": {"class": "endNode", "data": {"text": "y"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.doc))
			require.NoError(t, err)
			_, err = Build(doc, handler.NewRegistry(handler.Deps{}))
			var cfgErr *domain.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestParseDocument_Malformed(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"1": `, `{}`} {
		_, err := ParseDocument([]byte(raw))
		var cfgErr *domain.ConfigError
		assert.ErrorAs(t, err, &cfgErr, "input %q", raw)
	}
}

func TestNext(t *testing.T) {
	g := loadFixture(t, "support.json")

	tests := []struct {
		name   string
		from   string
		intent string
		want   string
	}{
		{"Single Child Ignores Intent", domain.StartNodeID, "whatever", "2"},
		{"Branch Yes", "3", domain.IntentYes, "4"},
		{"Branch No", "3", domain.IntentNo, "5"},
		{"Loop Back", "5", domain.IntentNo, "2"},
		{"Leaf", "6", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := g.Next(tt.from, tt.intent)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_Deterministic(t *testing.T) {
	g := loadFixture(t, "support.json")
	for range 50 {
		got, err := g.Next("3", domain.IntentNo)
		require.NoError(t, err)
		require.Equal(t, "5", got)
	}
}

func TestNext_NoMatchingBranch(t *testing.T) {
	g := loadFixture(t, "support.json")

	_, err := g.Next("3", "maybe")
	var routeErr *domain.RoutingError
	require.ErrorAs(t, err, &routeErr)
	assert.Equal(t, "3", routeErr.NodeID)
	assert.Equal(t, "maybe", routeErr.Intent)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(loadFixture(t, "support.json")))

	doc, err := ParseDocument([]byte(`{
		"s": {"class": "startNode", "data": {"text": "x"}, "outputs": {"o": {"connections": [{"node": "a"}, {"node": "b"}, {"node": "c"}]}}},
		"a": {"class": "intentNode", "data": {"intent": "yes"}},
		"b": {"class": "textNode", "data": {"text": "unlabelled"}},
		"c": {"class": "intentNode", "data": {"intent": "yes"}},
		"lost": {"class": "endNode", "data": {"text": "never"}, "inputs": {"i": {"connections": [{"node": "ghost"}]}}}
	}`))
	require.NoError(t, err)
	g, err := Build(doc, handler.NewRegistry(handler.Deps{}))
	require.NoError(t, err)

	err = Validate(g)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Issues, 4)
	assert.Contains(t, err.Error(), "Unreachable node: 'lost'")
	assert.Contains(t, err.Error(), "unknown parent 'ghost'")
	assert.Contains(t, err.Error(), "has no intent label")
	assert.Contains(t, err.Error(), "is shadowed by 'a'")
}

func TestMermaid(t *testing.T) {
	g := loadFixture(t, "support.json")
	got := Mermaid(g, "2")

	for _, want := range []string{
		"graph TD\n",
		`start00000000(("start00000000"))`,
		`2[/"listenerNode <br/> 2"/]`,
		`3{"ifNode <br/> 3"}`,
		`3 -- "yes" --> 4`,
		`3 -- "no" --> 5`,
		`6((("endNode <br/> 6")))`,
		"start00000000 --> 2",
		"class 2 current;",
	} {
		assert.Contains(t, got, want)
	}
	assert.NotContains(t, Mermaid(g, ""), "classDef")
}

type stubLoader struct {
	source string
	raw    []byte
	calls  int
}

func (l *stubLoader) Source() string { return l.source }

func (l *stubLoader) Load(context.Context) ([]byte, error) {
	l.calls++
	return l.raw, nil
}

func TestCache(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", "greeting.yaml"))
	require.NoError(t, err)
	loader := &stubLoader{source: "greeting.yaml", raw: raw}
	reg := handler.NewRegistry(handler.Deps{})
	c := NewCache(0)

	g1, err := c.Get(context.Background(), loader, reg)
	require.NoError(t, err)
	g2, err := c.Get(context.Background(), loader, reg)
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, "greeting.yaml", g1.Source())

	c.Invalidate("greeting.yaml")
	g3, err := c.Get(context.Background(), loader, reg)
	require.NoError(t, err)
	assert.NotSame(t, g1, g3)
	assert.Equal(t, 2, loader.calls)
}

func TestEndpoints_NumericSlotOrder(t *testing.T) {
	slots := map[string]Slot{
		"output_10": {Connections: []Connection{{Node: "c"}}},
		"output_2":  {Connections: []Connection{{Node: "b"}}},
		"output_1":  {Connections: []Connection{{Node: "a"}}},
	}
	assert.Equal(t, []string{"a", "b", "c"}, endpoints(slots))
}
