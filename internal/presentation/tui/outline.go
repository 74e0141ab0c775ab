package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/easyyaml/pkg/tree"
)

// Outline renders a tree as an indented plain text listing, one node per
// line: key, display value and type.
func Outline(t tree.Reader) (string, error) {
	var sb strings.Builder
	err := t.Walk(func(it tree.Item, depth int) error {
		if it.ID == t.Root() {
			fmt.Fprintf(&sb, "%s (%s)\n", it.Text, it.Kind)
			return nil
		}
		indent := strings.Repeat("  ", depth-1)
		fmt.Fprintf(&sb, "%s%s: %s (%s)\n", indent, it.Key, it.Text, it.Kind)
		return nil
	})
	return sb.String(), err
}

// MarkdownOutline renders a tree as a nested markdown list for the
// terminal renderer.
func MarkdownOutline(t tree.Reader, title string) (string, error) {
	var sb strings.Builder
	if title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	err := t.Walk(func(it tree.Item, depth int) error {
		if it.ID == t.Root() {
			return nil
		}
		indent := strings.Repeat("  ", depth-1)
		key := it.Key
		if it.InSequence {
			key = "[" + key + "]"
		}
		if it.Kind.IsScalar() {
			fmt.Fprintf(&sb, "%s- **%s** `%s` _%s_\n", indent, escapeMarkdown(key), it.Text, it.Kind)
		} else {
			fmt.Fprintf(&sb, "%s- **%s** _%s %s_\n", indent, escapeMarkdown(key), it.Kind, it.Text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if t.Len() == 1 {
		sb.WriteString("_empty document_\n")
	}
	return sb.String(), nil
}

var markdownEscaper = strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
