package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/easyyaml/pkg/codec"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
)

// Mask replaces redacted scalar values.
const Mask = "***"

type piiMiddleware struct {
	next     ports.DraftStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of mapping
// keys matching any of the patterns before a draft is stored. Masked
// containers become a single masked string. Drafts whose text does not
// parse are refused.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: redact pattern %q: %v", domain.ErrInvalidValue, p, err)
		}
		patterns[i] = re
	}
	return func(next ports.DraftStore) ports.DraftStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, id string, draft *domain.Draft) error {
	v, err := codec.Parse(draft.Text)
	if err != nil {
		return fmt.Errorf("cannot redact draft %s: %w", id, err)
	}

	masked, changed := m.mask(v)
	if !changed {
		return m.next.Save(ctx, id, draft)
	}
	text, err := codec.Serialize(masked)
	if err != nil {
		return err
	}

	// Copy to avoid side effects on the caller's draft.
	cloned := *draft
	cloned.Text = text
	return m.next.Save(ctx, id, &cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, id string) (*domain.Draft, error) {
	return m.next.Load(ctx, id)
}

func (m *piiMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(v domain.Value) (domain.Value, bool) {
	switch v.Kind() {
	case domain.KindMapping:
		changed := false
		entries := make([]domain.Entry, 0, v.Len())
		for _, e := range v.Entries() {
			if m.sensitive(e.Key) {
				entries = append(entries, domain.E(e.Key, domain.String(Mask)))
				changed = true
				continue
			}
			sub, c := m.mask(e.Value)
			entries = append(entries, domain.E(e.Key, sub))
			changed = changed || c
		}
		return domain.Mapping(entries...), changed
	case domain.KindSequence:
		changed := false
		items := make([]domain.Value, 0, v.Len())
		for _, item := range v.Items() {
			sub, c := m.mask(item)
			items = append(items, sub)
			changed = changed || c
		}
		return domain.Sequence(items...), changed
	}
	return v, false
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
