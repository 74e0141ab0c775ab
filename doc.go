/*
Package easyyaml is the core of a two-view YAML editor: every document is held
both as free-form text and as a typed tree, and a synchronizer keeps the two
projections consistent.

Exactly one view is active at a time. Text edits mark the tree stale and tree
edits mark the text stale; switching views regenerates the inactive one.
Switching to the tree parses the text and is refused when the text is not
valid YAML, leaving the buffer untouched. Tree edits are coerced to the node
type and rejected without side effects when the input does not fit.

# Usage

	editor, err := easyyaml.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	doc, err := editor.OpenFile(ctx, "deploy.yaml")
	if err != nil {
		log.Fatal(err)
	}

	if err := doc.SwitchTo(domain.ViewTree); err != nil {
		log.Fatal(err) // *domain.ParseError carries the line
	}
	t, _ := doc.Tree()
	replicas, _ := t.Lookup("spec", "replicas")
	if _, err := doc.SetScalar(replicas, "3"); err != nil {
		log.Fatal(err)
	}

	if err := editor.Save(ctx, doc.ID()); err != nil {
		log.Fatal(err)
	}

Comments, anchors and original formatting do not survive the tree view: the
text is rendered canonically (block style, two-space indentation, key order
preserved) whenever the tree has been edited.

The same workspace is exposed by the easyyaml command: one-shot CLI edits,
an HTTP API (pkg/adapters/http) and an MCP server (pkg/adapters/mcp).
*/
package easyyaml
