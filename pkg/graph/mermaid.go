package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// Mermaid renders the graph as a Mermaid flowchart. Shapes follow the node type:
//   - Start: ((Circle))
//   - End: (((Double circle)))
//   - Listen: [/Parallelogram/]
//   - Decider, If, Validator: {Rhombus}
//   - Qa, Ai, Ticket: [[Subroutine]]
//   - Default: [Rectangle]
//
// Edges into labelled children carry the intent. A non-empty current id is highlighted.
func Mermaid(g *Graph, current string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, n := range g.Nodes() {
		safeID := sanitizeMermaidID(n.ID)
		opener, closer := shape(n.Type)

		caption := n.ID
		if n.Name != "" && n.Name != n.ID {
			caption = n.Name + " <br/> " + n.ID
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, strings.ReplaceAll(caption, "\"", "'"), closer)

		for _, c := range n.Children {
			arrow := "-->"
			if label, ok := g.nodes[c].Label(); ok && len(n.Children) > 1 {
				arrow = fmt.Sprintf("-- \"%s\" -->", strings.ReplaceAll(label, "\"", "'"))
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(c))
		}
	}

	if current != "" {
		sb.WriteString("\n    %% Current node\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(current))
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeStart:
		return "((", "))"
	case domain.NodeTypeEnd:
		return "(((", ")))"
	case domain.NodeTypeListen:
		return "[/", "/]"
	case domain.NodeTypeDecider, domain.NodeTypeIf, domain.NodeTypeValidator:
		return "{", "}"
	case domain.NodeTypeQa, domain.NodeTypeAi, domain.NodeTypeTicket:
		return "[[", "]]"
	}
	return "[", "]"
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
