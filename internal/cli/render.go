package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/easyyaml/internal/presentation/graph"
	"github.com/aretw0/easyyaml/internal/presentation/tui"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/query"
	"github.com/aretw0/easyyaml/pkg/tree"
)

// Tree output formats.
const (
	FormatOutline = "outline"
	FormatRich    = "rich"
	FormatMermaid = "mermaid"
	FormatJSON    = "json"
)

// RenderOptions controls RenderTree.
type RenderOptions struct {
	Format string
	Title  string
	// Highlight is a JSONPath expression whose matches are marked on
	// mermaid diagrams.
	Highlight string
	// Text is the document text the highlight expression runs against.
	Text string
}

// RenderTree writes a tree in the requested format.
func RenderTree(w io.Writer, t tree.Reader, opts RenderOptions) error {
	switch opts.Format {
	case "", FormatOutline:
		out, err := tui.Outline(t)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case FormatRich:
		md, err := tui.MarkdownOutline(t, opts.Title)
		if err != nil {
			return err
		}
		render, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		out, err := render(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case FormatMermaid:
		var overlay *graph.Overlay
		if opts.Highlight != "" {
			ids, err := Highlight(t, opts.Text, opts.Highlight)
			if err != nil {
				return err
			}
			overlay = &graph.Overlay{Matched: ids}
		}
		out, err := graph.GenerateMermaid(t, overlay)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err

	case FormatJSON:
		snap, err := t.Snapshot(t.Root())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)

	default:
		return fmt.Errorf("%w: unknown format %q (want outline, rich, mermaid or json)", domain.ErrInvalidValue, opts.Format)
	}
}

// Highlight evaluates a JSONPath expression against text and returns the
// tree nodes it selects. Matches only reachable through aliases are skipped.
func Highlight(t tree.Reader, text, expr string) ([]tree.NodeID, error) {
	matches, err := query.Find(text, expr)
	if err != nil {
		return nil, err
	}
	var ids []tree.NodeID
	for _, m := range matches {
		if m.Path == nil {
			continue
		}
		id, err := t.Lookup(m.Path...)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Query prints the matches of a JSONPath expression, one per block.
func Query(w io.Writer, text, expr string) (int, error) {
	matches, err := query.Find(text, expr)
	if err != nil {
		return 0, err
	}
	for _, m := range matches {
		path := "(alias)"
		if m.Path != nil {
			path = JoinPath(m.Path)
		}
		fmt.Fprintf(w, "%s (line %d)\n%s\n", path, m.Line, indent(m.Value))
	}
	return len(matches), nil
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
