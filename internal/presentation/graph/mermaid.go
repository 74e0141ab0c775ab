package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/tree"
)

// Overlay marks nodes to highlight on the diagram.
type Overlay struct {
	Matched []tree.NodeID // e.g. nodes on a looked up path
	Current tree.NodeID
}

// GenerateMermaid produces a Mermaid flowchart of a document tree.
// Shapes follow the node kind:
// - Root: ((Circle))
// - Mapping: [[Subroutine]]
// - Sequence: [/Parallelogram/]
// - Scalar: (Rounded) labelled "key: value"
func GenerateMermaid(t tree.Reader, overlay *Overlay) (string, error) {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	err := t.Walk(func(it tree.Item, depth int) error {
		id := mermaidID(it.ID)

		opener, closer := "(", ")"
		label := it.Key + ": " + it.Text
		switch {
		case it.ID == t.Root():
			opener, closer = "((", "))"
			label = "root " + it.Text
		case it.Kind == domain.KindMapping:
			opener, closer = "[[", "]]"
			label = it.Key
		case it.Kind == domain.KindSequence:
			opener, closer = "[/", "/]"
			label = it.Key
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, escapeLabel(label), closer)

		if it.Parent != 0 {
			arrow := "-->"
			if it.InSequence {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(it.Parent), arrow, id)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef matched fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[tree.NodeID]bool)
		for _, id := range overlay.Matched {
			if !seen[id] && t.Has(id) {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s matched;\n", mermaidID(id))
			}
		}
		if overlay.Current != 0 && t.Has(overlay.Current) {
			fmt.Fprintf(&sb, "    class %s current;\n", mermaidID(overlay.Current))
		}
	}

	return sb.String(), nil
}

func mermaidID(id tree.NodeID) string {
	return fmt.Sprintf("n%d", id)
}

// escapeLabel keeps labels inside their double quotes on one line.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
