package graph

import "github.com/aretw0/parley/pkg/domain"

// Next selects the node that follows id given the intent its handler produced.
// An empty id means there is no next node. A branching node whose children
// carry no matching label yields a *domain.RoutingError.
func (g *Graph) Next(id, intent string) (string, error) {
	n, ok := g.nodes[id]
	if !ok {
		return "", &domain.RoutingError{NodeID: id, Intent: intent}
	}

	switch len(n.Children) {
	case 0:
		return "", nil
	case 1:
		return n.Children[0], nil
	}

	for _, c := range n.Children {
		child := g.nodes[c]
		if label, ok := child.Label(); ok && label == intent {
			return c, nil
		}
	}
	return "", &domain.RoutingError{NodeID: id, Intent: intent}
}
