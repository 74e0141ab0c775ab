package file

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/easyyaml/pkg/domain"
)

// DraftStore implements ports.DraftStore using the local filesystem.
// It stores drafts as JSON files in a configured directory.
type DraftStore struct {
	BasePath string
}

// NewDraftStore creates a new DraftStore with the given base path.
// If basePath is empty, it defaults to ".easyyaml/drafts".
func NewDraftStore(basePath string) *DraftStore {
	if basePath == "" {
		basePath = filepath.Join(".easyyaml", "drafts")
	}
	return &DraftStore{BasePath: basePath}
}

func (s *DraftStore) path(id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("draft id cannot be empty")
	}
	if id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid draft id %q", domain.ErrInvalidTarget, id)
	}
	// Documents opened from files use their path as id.
	return filepath.Join(s.BasePath, url.PathEscape(id)+".json"), nil
}

// Save persists the draft to a JSON file atomically.
func (s *DraftStore) Save(ctx context.Context, id string, draft *domain.Draft) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Load retrieves a draft from its JSON file.
func (s *DraftStore) Load(ctx context.Context, id string) (*domain.Draft, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read draft file: %w", err)
	}

	var draft domain.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	return &draft, nil
}

// Delete removes the draft file.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete draft file: %w", err)
	}
	return nil
}

// List returns the ids of stored drafts.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	ids := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
