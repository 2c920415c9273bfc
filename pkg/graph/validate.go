package graph

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem Validate found.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("found %d errors:\n- %s", len(e.Issues), strings.Join(e.Issues, "\n- "))
}

// Validate crawls the graph from the start node and reports unreachable
// nodes, dangling parent references and branches that routing can never take.
func Validate(g *Graph) error {
	var issues []string

	visited := make(map[string]bool, g.Len())
	queue := []string{g.Start().ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		n := g.nodes[id]
		for _, c := range n.Children {
			if !visited[c] {
				queue = append(queue, c)
			}
		}
		issues = append(issues, branchIssues(g, n)...)
	}

	for _, n := range g.Nodes() {
		if !visited[n.ID] {
			issues = append(issues, fmt.Sprintf("Unreachable node: '%s'", n.ID))
		}
		for _, p := range n.Parents {
			if _, ok := g.nodes[p]; !ok {
				issues = append(issues, fmt.Sprintf("Node '%s' lists unknown parent '%s'", n.ID, p))
			}
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func branchIssues(g *Graph, n *Node) []string {
	if len(n.Children) < 2 {
		return nil
	}
	var issues []string
	seen := make(map[string]string)
	for _, c := range n.Children {
		label, ok := g.nodes[c].Label()
		if !ok {
			issues = append(issues, fmt.Sprintf("Branch '%s' -> '%s' has no intent label", n.ID, c))
			continue
		}
		if first, dup := seen[label]; dup {
			issues = append(issues, fmt.Sprintf("Branch '%s' -> '%s' is shadowed by '%s' (intent %q)", n.ID, c, first, label))
			continue
		}
		seen[label] = c
	}
	return issues
}
