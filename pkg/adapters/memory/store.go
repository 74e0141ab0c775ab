package memory

import (
	"context"
	"sync"

	"github.com/aretw0/easyyaml/pkg/domain"
)

// DraftStore implements ports.DraftStore in memory.
// Safe for concurrent use.
type DraftStore struct {
	data map[string]domain.Draft
	mu   sync.RWMutex
}

// NewDraftStore creates a new in-memory draft store.
func NewDraftStore() *DraftStore {
	return &DraftStore{
		data: make(map[string]domain.Draft),
	}
}

// Save keeps a copy of the draft.
func (s *DraftStore) Save(ctx context.Context, id string, draft *domain.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = *draft
	return nil
}

// Load returns a copy so callers can't mutate the stored draft by pointer.
func (s *DraftStore) Load(ctx context.Context, id string) (*domain.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &d, nil
}

// Delete removes the draft.
func (s *DraftStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored draft ids.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
