package ports

import (
	"context"

	"github.com/aretw0/easyyaml/pkg/domain"
)

// TemplateSource reads templates.
type TemplateSource interface {
	// List returns every template the source knows.
	List(ctx context.Context) ([]domain.Template, error)

	// Read returns the YAML text of a template.
	// Returns domain.ErrTemplateNotFound for unknown references.
	Read(ctx context.Context, ref string) (string, error)
}

// TemplateStore is a writable TemplateSource for user templates.
type TemplateStore interface {
	TemplateSource

	// Add stores text as a new template and returns its description.
	Add(ctx context.Context, tmpl domain.Template, text string) (domain.Template, error)

	// Delete removes a template.
	Delete(ctx context.Context, ref string) error

	// Rename changes the display name of a template, keeping its category.
	Rename(ctx context.Context, ref, name string) (domain.Template, error)
}
