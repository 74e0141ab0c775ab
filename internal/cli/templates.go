package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/templates"
)

// ListTemplates prints the catalog, filtered by a fuzzy query when one is
// given.
func ListTemplates(ctx context.Context, catalog *templates.Catalog, q string, w io.Writer) error {
	var (
		entries []templates.Entry
		err     error
	)
	if q == "" {
		entries, err = catalog.List(ctx)
	} else {
		entries, err = catalog.Search(ctx, q)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tNAME\tSOURCE\tDESCRIPTION")
	for _, e := range entries {
		source := "builtin"
		if e.User {
			source = "user"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Ref, e.Display, source, e.Description)
	}
	return tw.Flush()
}

// AddTemplate stores the content of a YAML file as a user template.
func AddTemplate(ctx context.Context, catalog *templates.Catalog, name, category, description, src string) (templates.Entry, error) {
	text, err := os.ReadFile(src)
	if err != nil {
		return templates.Entry{}, err
	}
	return catalog.AddUser(ctx, name, category, string(text), description)
}

// CreateFromTemplate starts a document from a template and writes it to
// path. Existing files are left alone unless force is set.
func CreateFromTemplate(ctx context.Context, editor *easyyaml.Editor, ref, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s already exists", domain.ErrInvalidTarget, path)
		}
	}
	doc, err := editor.NewFromTemplate(ctx, ref, "")
	if err != nil {
		return err
	}
	defer editor.Docs.Close(ctx, doc.ID(), true)
	return editor.SaveAs(ctx, doc.ID(), path)
}
