package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/find"
	"github.com/aretw0/easyyaml/pkg/session"
	"github.com/aretw0/easyyaml/pkg/tree"
)

// Output controls where an edited document goes.
type Output struct {
	Write bool // write the file back instead of printing it
	Diff  bool // print a diff against the original text
	Out   io.Writer
}

// EditFunc applies an edit to a document in the tree view.
type EditFunc func(doc *session.Session, t tree.Reader) error

// EditFile opens path, switches to the tree view and applies fn.
func EditFile(ctx context.Context, editor *easyyaml.Editor, path string, out Output, fn EditFunc) error {
	return withFile(ctx, editor, path, out, func(doc *session.Session) error {
		if err := doc.SwitchTo(domain.ViewTree); err != nil {
			return err
		}
		t, err := doc.Tree()
		if err != nil {
			return err
		}
		return fn(doc, t)
	})
}

// withFile opens path, runs fn under the document lock and emits the
// result. The document is always closed.
func withFile(ctx context.Context, editor *easyyaml.Editor, path string, out Output, fn func(doc *session.Session) error) error {
	doc, err := editor.OpenFile(ctx, path)
	if err != nil {
		return err
	}
	id := doc.ID()
	defer editor.Docs.Close(ctx, id, true)

	var original, text string
	var dirty bool
	err = editor.Docs.WithLock(ctx, id, func(ctx context.Context, doc *session.Session) error {
		original = doc.Text()
		if err := fn(doc); err != nil {
			return err
		}
		text, err = doc.CanonicalText()
		dirty = doc.IsDirty()
		return err
	})
	if err != nil {
		return err
	}

	if out.Diff {
		fmt.Fprint(out.Out, Diff(original, text))
	}
	switch {
	case out.Write && dirty:
		return editor.Save(ctx, id)
	case out.Write:
		return nil
	case !out.Diff:
		fmt.Fprint(out.Out, text)
	}
	return nil
}

// Format rewrites a file in canonical form.
func Format(ctx context.Context, editor *easyyaml.Editor, path string, out Output) error {
	return withFile(ctx, editor, path, out, func(doc *session.Session) error {
		return doc.Reformat()
	})
}

// Get prints the node at a path: scalars as their display text,
// containers as YAML.
func Get(ctx context.Context, editor *easyyaml.Editor, path, nodePath string, w io.Writer) error {
	return EditFile(ctx, editor, path, Output{Out: io.Discard}, func(doc *session.Session, t tree.Reader) error {
		id, err := Resolve(t, nodePath)
		if err != nil {
			return err
		}
		it, err := t.Item(id)
		if err != nil {
			return err
		}
		if it.Kind.IsScalar() {
			fmt.Fprintln(w, it.Text)
			return nil
		}
		v, err := t.ValueOf(id)
		if err != nil {
			return err
		}
		text, err := codec.Serialize(v)
		if err != nil {
			return err
		}
		fmt.Fprint(w, text)
		return nil
	})
}

// Set changes the value of a scalar node.
func Set(nodePath, raw string) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		id, err := Resolve(t, nodePath)
		if err != nil {
			return err
		}
		_, err = doc.SetScalar(id, raw)
		return err
	}
}

// Add appends a node of the given type under a mapping or sequence.
func Add(parentPath, key, typeName, raw string) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		kind, err := domain.ParseKind(typeName)
		if err != nil {
			return err
		}
		parent, err := Resolve(t, parentPath)
		if err != nil {
			return err
		}
		_, err = doc.AddNode(parent, key, kind, raw)
		return err
	}
}

// Remove deletes a node and its subtree.
func Remove(nodePath string) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		id, err := Resolve(t, nodePath)
		if err != nil {
			return err
		}
		if id == t.Root() {
			return fmt.Errorf("%w: the root cannot be removed", domain.ErrInvalidTarget)
		}
		return doc.Delete(id)
	}
}

// Move reorders the children of a node.
func Move(parentPath string, from, to int) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		parent, err := Resolve(t, parentPath)
		if err != nil {
			return err
		}
		return doc.Reorder(parent, from, to)
	}
}

// Rename changes a mapping key.
func Rename(nodePath, key string) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		id, err := Resolve(t, nodePath)
		if err != nil {
			return err
		}
		return doc.Rename(id, key)
	}
}

// Retype converts a node to another type.
func Retype(nodePath, typeName string) EditFunc {
	return func(doc *session.Session, t tree.Reader) error {
		kind, err := domain.ParseKind(typeName)
		if err != nil {
			return err
		}
		id, err := Resolve(t, nodePath)
		if err != nil {
			return err
		}
		return doc.ChangeType(id, kind)
	}
}

// Find prints every occurrence of query as "path:line:col: text" and
// returns the count.
func Find(ctx context.Context, editor *easyyaml.Editor, path, query string, caseSensitive bool, w io.Writer) (int, error) {
	var count int
	err := withFile(ctx, editor, path, Output{Out: io.Discard}, func(doc *session.Session) error {
		text := doc.Text()
		matches, err := find.All(text, query, caseSensitive)
		if err != nil {
			return err
		}
		for _, m := range matches {
			line, col, content := position(text, m.Start)
			fmt.Fprintf(w, "%s:%d:%d: %s\n", path, line, col, content)
		}
		count = len(matches)
		return nil
	})
	return count, err
}

// Replace substitutes repl for every occurrence of query in the text and
// returns the count.
func Replace(ctx context.Context, editor *easyyaml.Editor, path, query, repl string, caseSensitive bool, out Output) (int, error) {
	var count int
	err := withFile(ctx, editor, path, out, func(doc *session.Session) error {
		n, err := doc.ReplaceAll(query, repl, caseSensitive)
		count = n
		return err
	})
	return count, err
}

// position converts a byte offset to a 1-based line and column and returns
// the text of that line.
func position(text string, offset int) (line, col int, content string) {
	line, start := 1, 0
	for i := 0; i < offset && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			start = i + 1
		}
	}
	end := start
	for end < len(text) && text[end] != '\n' {
		end++
	}
	return line, offset - start + 1, text[start:end]
}
