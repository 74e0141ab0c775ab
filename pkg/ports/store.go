package ports

import (
	"context"

	"github.com/aretw0/easyyaml/pkg/domain"
)

// DraftStore persists snapshots of open documents so unsaved work survives
// a restart.
type DraftStore interface {
	// Save persists the draft under id, replacing any previous one.
	Save(ctx context.Context, id string, draft *domain.Draft) error

	// Load retrieves the draft for id.
	// Returns domain.ErrSessionNotFound if there is none.
	Load(ctx context.Context, id string) (*domain.Draft, error)

	// Delete removes the draft for id. Deleting a missing draft is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored drafts.
	List(ctx context.Context) ([]string, error)
}
