package session

import (
	"fmt"
	"time"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/find"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
)

// Session is one open document.
type Session struct {
	*synchronizer.Synchronizer

	id    string
	title string
	path  string
	saved uint64 // revision at the last load or save
}

// New returns a clean session holding text in the text view.
func New(id, title, text string, opts ...synchronizer.Option) *Session {
	s := &Session{
		Synchronizer: synchronizer.New(text, opts...),
		id:           id,
		title:        title,
	}
	s.saved = s.Revision()
	return s
}

// ID returns the document id.
func (s *Session) ID() string { return s.id }

// Title returns the tab title.
func (s *Session) Title() string { return s.title }

// SetTitle changes the tab title.
func (s *Session) SetTitle(title string) { s.title = title }

// Path returns the file the document was read from, if any.
func (s *Session) Path() string { return s.path }

// SetPath records the file backing the document.
func (s *Session) SetPath(path string) { s.path = path }

// Load resets both views from text, in the text view, and clears the dirty flag.
func (s *Session) Load(text string) {
	s.Reset(text)
	s.saved = s.Revision()
}

// IsDirty reports whether either view was edited since the last load or save.
func (s *Session) IsDirty() bool {
	return s.Revision() != s.saved
}

// MarkSaved clears the dirty flag without touching the buffer.
func (s *Session) MarkSaved() {
	s.saved = s.Revision()
}

// Find searches the canonical text from a byte offset.
func (s *Session) Find(query string, from int, opts find.Options) (find.Match, bool, error) {
	text, err := s.CanonicalText()
	if err != nil {
		return find.Match{}, false, err
	}
	return find.Find(text, query, from, opts)
}

// Replace substitutes repl for a match in the text buffer. The text view
// must be active.
func (s *Session) Replace(m find.Match, repl string) error {
	text := s.Text()
	if m.Start < 0 || m.End > len(text) || m.Start > m.End {
		return fmt.Errorf("%w: match [%d,%d) outside the text", domain.ErrInvalidTarget, m.Start, m.End)
	}
	return s.SetText(find.Replace(text, m, repl))
}

// ReplaceAll substitutes repl for every occurrence of query in the text
// buffer and returns the count. The text view must be active.
func (s *Session) ReplaceAll(query, repl string, caseSensitive bool) (int, error) {
	if s.View() != domain.ViewText {
		return 0, fmt.Errorf("%w: replace requires the text view", domain.ErrInvalidTarget)
	}
	text, n, err := find.ReplaceAll(s.Text(), query, repl, caseSensitive)
	if err != nil || n == 0 {
		return 0, err
	}
	return n, s.SetText(text)
}

// Draft snapshots the document for a DraftStore.
func (s *Session) Draft() (*domain.Draft, error) {
	text, err := s.CanonicalText()
	if err != nil {
		return nil, err
	}
	return &domain.Draft{
		ID:      s.id,
		Title:   s.title,
		Path:    s.path,
		Text:    text,
		View:    s.View(),
		Dirty:   s.IsDirty(),
		SavedAt: time.Now().UTC(),
	}, nil
}

// Restore rebuilds a session from a draft. A draft taken in the tree view is
// reopened in the tree view.
func Restore(d *domain.Draft, opts ...synchronizer.Option) (*Session, error) {
	s := New(d.ID, d.Title, d.Text, opts...)
	s.path = d.Path
	if d.View == domain.ViewTree {
		if err := s.SwitchTo(domain.ViewTree); err != nil {
			return nil, fmt.Errorf("failed to restore draft %s: %w", d.ID, err)
		}
	}
	if d.Dirty {
		s.saved = 0
	}
	return s, nil
}
