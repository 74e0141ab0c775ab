// Package templates merges builtin and user templates into one searchable
// catalog.
package templates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is a template with the name shown in pickers.
type Entry struct {
	domain.Template
	Display string `json:"display"`
}

// Catalog lists templates from a writable user store and any number of
// read-only builtin sources.
type Catalog struct {
	user     ports.TemplateStore
	builtins []ports.TemplateSource
}

// New creates a catalog. user may also serve builtins, as the file store does.
func New(user ports.TemplateStore, builtins ...ports.TemplateSource) *Catalog {
	return &Catalog{user: user, builtins: builtins}
}

var titler = cases.Title(language.Und)

// DisplayName renders "Category > Name" title-cased, without extension.
func DisplayName(t domain.Template) string {
	name := strings.TrimSuffix(strings.TrimSuffix(t.Name, ".yaml"), ".yml")
	if t.Category == "" {
		return titler.String(name)
	}
	category := strings.ReplaceAll(t.Category, "/", " > ")
	return titler.String(category + " > " + name)
}

// List returns every template sorted by display name. A reference served by
// several sources is listed once.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	seen := make(map[string]bool)
	var out []Entry
	add := func(src ports.TemplateSource) error {
		list, err := src.List(ctx)
		if err != nil {
			return err
		}
		for _, t := range list {
			if seen[t.Ref] {
				continue
			}
			seen[t.Ref] = true
			out = append(out, Entry{Template: t, Display: DisplayName(t)})
		}
		return nil
	}

	for _, src := range c.builtins {
		if err := add(src); err != nil {
			return nil, fmt.Errorf("failed to list builtin templates: %w", err)
		}
	}
	if err := add(c.user); err != nil {
		return nil, fmt.Errorf("failed to list user templates: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Display != out[j].Display {
			return out[i].Display < out[j].Display
		}
		return out[i].Ref < out[j].Ref
	})
	return out, nil
}

// Search filters the catalog with a fuzzy match on display names, keeping
// display order. Without fuzzy matches it falls back to a substring match
// on references.
func (c *Catalog) Search(ctx context.Context, query string) ([]Entry, error) {
	all, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return all, nil
	}

	labels := make([]string, len(all))
	for i, e := range all {
		labels[i] = e.Display
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, labels)
	if len(ranks) > 0 {
		matches := make(map[int]struct{}, len(ranks))
		for _, rank := range ranks {
			matches[rank.OriginalIndex] = struct{}{}
		}
		filtered := make([]Entry, 0, len(matches))
		for i, e := range all {
			if _, ok := matches[i]; ok {
				filtered = append(filtered, e)
			}
		}
		return filtered, nil
	}

	lower := strings.ToLower(trimmed)
	filtered := []Entry{}
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Ref), lower) {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Text returns the content of a template.
func (c *Catalog) Text(ctx context.Context, ref string) (string, error) {
	if !isUserRef(ref) {
		for _, src := range c.builtins {
			text, err := src.Read(ctx, ref)
			if err == nil {
				return text, nil
			}
			if !errors.Is(err, domain.ErrTemplateNotFound) {
				return "", err
			}
		}
	}
	return c.user.Read(ctx, ref)
}

// AddUser stores text as a user template. The text must be valid YAML.
func (c *Catalog) AddUser(ctx context.Context, name, category, text, description string) (Entry, error) {
	if _, err := codec.Parse(text); err != nil {
		return Entry{}, fmt.Errorf("template %q is not valid YAML: %w", name, err)
	}
	t, err := c.user.Add(ctx, domain.Template{Name: name, Category: category, Description: description}, text)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Template: t, Display: DisplayName(t)}, nil
}

// DeleteUser removes a user template. Builtin templates are read-only.
func (c *Catalog) DeleteUser(ctx context.Context, ref string) error {
	if !isUserRef(ref) {
		return fmt.Errorf("%w: %s", domain.ErrReadOnlyTemplate, ref)
	}
	return c.user.Delete(ctx, ref)
}

// RenameUser renames a user template within its category.
func (c *Catalog) RenameUser(ctx context.Context, ref, name string) (Entry, error) {
	if !isUserRef(ref) {
		return Entry{}, fmt.Errorf("%w: %s", domain.ErrReadOnlyTemplate, ref)
	}
	t, err := c.user.Rename(ctx, ref, name)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Template: t, Display: DisplayName(t)}, nil
}

func isUserRef(ref string) bool {
	return strings.HasPrefix(ref, "user/")
}
