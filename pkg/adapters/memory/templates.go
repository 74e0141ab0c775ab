package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/easyyaml/pkg/domain"
)

type entry struct {
	tmpl domain.Template
	text string
}

// TemplateStore implements ports.TemplateStore in memory.
// Templates added through Add are user templates; Seed registers builtins.
type TemplateStore struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewTemplateStore creates an empty template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{entries: make(map[string]entry)}
}

// Seed registers a builtin template under "<category>/<name>".
func (s *TemplateStore) Seed(category, name, text string) domain.Template {
	t := domain.Template{Ref: category + "/" + name, Name: name, Category: category}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[t.Ref] = entry{tmpl: t, text: text}
	return t
}

// List returns templates sorted by reference.
func (s *TemplateStore) List(ctx context.Context) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Template, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref < out[j].Ref })
	return out, nil
}

// Read returns the text of a template.
func (s *TemplateStore) Read(ctx context.Context, ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	return e.text, nil
}

func userRef(category, name string) string {
	return "user/" + category + "/" + name
}

// Add stores a user template.
func (s *TemplateStore) Add(ctx context.Context, tmpl domain.Template, text string) (domain.Template, error) {
	tmpl.User = true
	tmpl.Ref = userRef(tmpl.Category, tmpl.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[tmpl.Ref]; exists {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateExists, tmpl.Ref)
	}
	s.entries[tmpl.Ref] = entry{tmpl: tmpl, text: text}
	return tmpl, nil
}

// Delete removes a user template.
func (s *TemplateStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	if !e.tmpl.User {
		return fmt.Errorf("%w: %s", domain.ErrReadOnlyTemplate, ref)
	}
	delete(s.entries, ref)
	return nil
}

// Rename gives a user template a new name in the same category.
func (s *TemplateStore) Rename(ctx context.Context, ref, name string) (domain.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ref]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, ref)
	}
	if !e.tmpl.User {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrReadOnlyTemplate, ref)
	}

	t := e.tmpl
	t.Name = name
	t.Ref = userRef(t.Category, name)
	if _, taken := s.entries[t.Ref]; taken && t.Ref != ref {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateExists, t.Ref)
	}
	delete(s.entries, ref)
	s.entries[t.Ref] = entry{tmpl: t, text: e.text}
	return t, nil
}
