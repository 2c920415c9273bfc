package graph

import (
	"context"
	"fmt"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/handler"
	"github.com/aretw0/parley/pkg/ports"
)

// Node is a vertex of the flow graph bound to its handler.
type Node struct {
	ID       string
	Name     string
	Class    string
	Type     domain.NodeType
	Handler  handler.Handler
	Children []string
	Parents  []string
	PosX     float64
	PosY     float64
}

// Label returns the routing label of the node's handler, if it has one.
func (n *Node) Label() (string, bool) {
	l, ok := n.Handler.(handler.Labeled)
	if !ok {
		return "", false
	}
	return l.Label(), true
}

// Graph is the immutable node index built from one workflow document.
type Graph struct {
	source string
	nodes  map[string]*Node
	order  []string
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Start returns the entry node.
func (g *Graph) Start() *Node {
	return g.nodes[domain.StartNodeID]
}

// Nodes returns every node in build order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Len is the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Source names the document the graph was built from.
func (g *Graph) Source() string { return g.source }

// Build resolves every record through the registry and wires the edges.
// Exactly one node must have the start type; it is renamed to domain.StartNodeID.
func Build(doc *Document, reg *handler.Registry) (*Graph, error) {
	ids := doc.IDs()

	startID := ""
	for _, id := range ids {
		t, ok := reg.Resolve(doc.Nodes[id].Class)
		if !ok {
			return nil, &domain.ConfigError{NodeID: id, Reason: "unknown node class " + doc.Nodes[id].Class}
		}
		if t != domain.NodeTypeStart {
			continue
		}
		if startID != "" {
			return nil, &domain.ConfigError{NodeID: id, Reason: fmt.Sprintf("second start node (first is %q)", startID)}
		}
		startID = id
	}
	if startID == "" {
		return nil, &domain.ConfigError{Reason: "workflow has no start node"}
	}

	rename := func(id string) string {
		if id == startID {
			return domain.StartNodeID
		}
		return id
	}

	g := &Graph{nodes: make(map[string]*Node, len(ids)), order: make([]string, 0, len(ids))}
	for _, id := range ids {
		rec := doc.Nodes[id]
		h, err := reg.Build(id, rec.Class, rec.Data)
		if err != nil {
			return nil, err
		}

		n := &Node{
			ID:      rename(id),
			Name:    rec.Name,
			Class:   rec.Class,
			Type:    h.Meta().Type,
			Handler: h,
			PosX:    rec.PosX,
			PosY:    rec.PosY,
		}
		if id == startID {
			n.Name = domain.StartNodeID
		}
		for _, c := range endpoints(rec.Outputs) {
			n.Children = append(n.Children, rename(c))
		}
		for _, p := range endpoints(rec.Inputs) {
			n.Parents = append(n.Parents, rename(p))
		}

		if _, dup := g.nodes[n.ID]; dup {
			return nil, &domain.ConfigError{NodeID: id, Reason: "node id collides with " + domain.StartNodeID}
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	for _, id := range g.order {
		for _, c := range g.nodes[id].Children {
			if _, ok := g.nodes[c]; !ok {
				return nil, &domain.ConfigError{NodeID: id, Reason: fmt.Sprintf("edge to unknown node %q", c)}
			}
		}
	}
	return g, nil
}

// Load reads, parses and builds the workflow behind a loader.
func Load(ctx context.Context, loader ports.WorkflowLoader, reg *handler.Registry) (*Graph, error) {
	raw, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", loader.Source(), err)
	}
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("parse workflow %s: %w", loader.Source(), err)
	}
	g, err := Build(doc, reg)
	if err != nil {
		return nil, fmt.Errorf("build workflow %s: %w", loader.Source(), err)
	}
	g.source = loader.Source()
	return g, nil
}
