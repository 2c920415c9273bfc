package handler

import (
	"sort"

	"github.com/aretw0/parley/pkg/domain"
)

// Constructor builds a handler from a node's raw data.
type Constructor func(id string, data map[string]any, deps Deps) (Handler, error)

type variant struct {
	nodeType domain.NodeType
	build    Constructor
}

// variants is the closed set of node classes the workflow editor emits.
var variants = map[string]variant{
	"startNode":     {domain.NodeTypeStart, newTextOf(domain.NodeTypeStart)},
	"textNode":      {domain.NodeTypeText, newTextOf(domain.NodeTypeText)},
	"endNode":       {domain.NodeTypeEnd, newTextOf(domain.NodeTypeEnd)},
	"listenerNode":  {domain.NodeTypeListen, newListen},
	"deciderNode":   {domain.NodeTypeDecider, newDecider},
	"intentNode":    {domain.NodeTypeIntent, newIntent},
	"qaNode":        {domain.NodeTypeQa, newQa},
	"aiNode":        {domain.NodeTypeAi, newAi},
	"validatorNode": {domain.NodeTypeValidator, newValidator},
	"setValueNode":  {domain.NodeTypeSetValue, newSetValue},
	"counterNode":   {domain.NodeTypeCounter, newCounter},
	"ifNode":        {domain.NodeTypeIf, newIf},
	"ticketNode":    {domain.NodeTypeTicket, newTicket},
}

// byType lets hand-written documents use the bare type name as class.
var byType = func() map[domain.NodeType]variant {
	m := make(map[domain.NodeType]variant, len(variants))
	for _, v := range variants {
		m[v.nodeType] = v
	}
	return m
}()

// Registry resolves node classes to handler constructors and binds collaborators.
type Registry struct {
	deps Deps
}

// NewRegistry creates a registry whose handlers call the given collaborators.
func NewRegistry(deps Deps) *Registry {
	deps.Logger = loggerOrNop(deps.Logger)
	return &Registry{deps: deps}
}

// Resolve returns the node type for a class tag.
func (r *Registry) Resolve(class string) (domain.NodeType, bool) {
	v, ok := lookup(class)
	return v.nodeType, ok
}

// Build constructs the handler for a node. Unknown classes are a *domain.ConfigError.
func (r *Registry) Build(id, class string, data map[string]any) (Handler, error) {
	v, ok := lookup(class)
	if !ok {
		return nil, &domain.ConfigError{NodeID: id, Reason: "unknown node class " + class}
	}
	if data == nil {
		data = map[string]any{}
	}
	return v.build(id, data, r.deps)
}

// Classes lists the accepted class tags, sorted.
func Classes() []string {
	out := make([]string, 0, len(variants))
	for c := range variants {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func lookup(class string) (variant, bool) {
	if v, ok := variants[class]; ok {
		return v, true
	}
	v, ok := byType[domain.NodeType(class)]
	return v, ok
}
