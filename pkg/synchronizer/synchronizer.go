package synchronizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/scalar"
	"github.com/aretw0/easyyaml/pkg/tree"
)

var errPropagating = fmt.Errorf("%w: view change requested during propagation", domain.ErrInvalidTarget)

// Stats counts propagation activity since the last Reset.
type Stats struct {
	Propagations  int // propagation steps that ran under the guard
	Dropped       int // nested propagation attempts refused by the guard
	TextRefreshes int // text buffer replacements rendered from the tree
	TreeRebuilds  int // trees rebuilt from parsed text
}

// Synchronizer keeps the text and tree projections of one document
// consistent. Exactly one view is active at a time; the other is regenerated
// on demand. A Synchronizer is not safe for concurrent use.
type Synchronizer struct {
	codec         Codec
	mirror        Mirror
	hooks         domain.SyncHooks
	listeners     []domain.Listener
	textObservers []func(string)

	buf      *TextBuffer
	tree     *tree.Tree
	snapshot *tree.Tree // last good tree

	active    domain.View
	suppress  bool // reentrancy guard
	treeStale bool // text edited since the tree was built
	textStale bool // tree edited since the text was rendered
	revision  uint64
	stats     Stats
}

// New returns a synchronizer for text, with the text view active.
func New(text string, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		codec: defaultCodec,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.buf = NewTextBuffer("")
	s.buf.Observe(s.onTextReplaced)
	for _, fn := range s.textObservers {
		s.buf.Observe(fn)
	}
	s.Reset(text)
	return s
}

// Reset discards both views and starts over from text in the text view.
func (s *Synchronizer) Reset(text string) {
	// Loading is not an edit: skip the synchronizer's own observer.
	s.buf.text = text
	for _, fn := range s.textObservers {
		fn(text)
	}

	s.tree, s.snapshot = nil, nil
	s.active = domain.ViewText
	s.treeStale, s.textStale = true, false
	s.revision++
	s.stats = Stats{}
}

// Subscribe registers an event listener.
func (s *Synchronizer) Subscribe(l domain.Listener) {
	s.listeners = append(s.listeners, l)
}

// View returns the active view.
func (s *Synchronizer) View() domain.View { return s.active }

// Mirror returns the mirror policy.
func (s *Synchronizer) Mirror() Mirror { return s.mirror }

// Text returns the text buffer as it is, which may lag behind tree edits
// under the lazy mirror policy. Use CanonicalText for the document content.
func (s *Synchronizer) Text() string { return s.buf.Text() }

// Revision increases with every edit to either view and on Reset.
func (s *Synchronizer) Revision() uint64 { return s.revision }

// Stats returns the propagation counters.
func (s *Synchronizer) Stats() Stats { return s.stats }

// Pending reports whether the inactive view lags behind the active one.
func (s *Synchronizer) Pending() bool {
	if s.active == domain.ViewTree {
		return s.textStale
	}
	return s.treeStale
}

// Tree returns a read-only view of the tree model. It is only available
// while the tree view is active.
func (s *Synchronizer) Tree() (tree.Reader, error) {
	if s.active != domain.ViewTree {
		return nil, fmt.Errorf("%w: the tree view is not active", domain.ErrInvalidTarget)
	}
	return s.tree, nil
}

// SetText replaces the text buffer as a user edit. The tree becomes stale.
// Text edits are refused while the tree view is active.
func (s *Synchronizer) SetText(text string) error {
	if s.active != domain.ViewText {
		return fmt.Errorf("%w: the text view is read-only while the tree view is active", domain.ErrInvalidTarget)
	}
	s.buf.Replace(text)
	return nil
}

func (s *Synchronizer) onTextReplaced(string) {
	s.propagate(domain.ViewText, func() error {
		s.treeStale = true
		s.revision++
		return nil
	})
}

// propagate runs step under the reentrancy guard. A propagation attempted
// while another one is running is dropped, not queued.
func (s *Synchronizer) propagate(source domain.View, step func() error) (bool, error) {
	if s.suppress {
		s.stats.Dropped++
		if s.hooks.OnDropped != nil {
			s.hooks.OnDropped(source)
		}
		return false, nil
	}

	s.suppress = true
	defer func() { s.suppress = false }()

	s.stats.Propagations++
	if s.hooks.OnPropagate != nil {
		s.hooks.OnPropagate(source)
	}
	return true, step()
}

// SwitchTo makes view the active view. Entering the tree parses the text; on
// a parse error the switch is refused and the text is left untouched.
// Entering the text renders the tree; on a serialization error the switch is
// refused and the tree stays authoritative.
func (s *Synchronizer) SwitchTo(view domain.View) error {
	if view == s.active {
		return nil
	}

	from := s.active
	var err error
	switch view {
	case domain.ViewTree:
		err = s.enterTree()
	case domain.ViewText:
		err = s.enterText()
	default:
		err = fmt.Errorf("%w: unknown view %s", domain.ErrInvalidValue, view)
	}
	if s.hooks.OnSwitch != nil {
		s.hooks.OnSwitch(from, view, err)
	}
	if err != nil {
		return err
	}

	s.active = view
	s.emit(domain.Event{Type: domain.EventViewSwitched, View: view})
	return nil
}

func (s *Synchronizer) enterTree() error {
	if s.tree != nil && !s.treeStale {
		return nil
	}

	var built *tree.Tree
	ran, err := s.propagate(domain.ViewText, func() error {
		v, err := s.codec.Parse(s.buf.Text())
		if err != nil {
			return err
		}
		if v.IsNull() {
			v = domain.Mapping()
		}
		built = tree.FromValue(v)
		return nil
	})
	if !ran {
		return errPropagating
	}
	if err != nil {
		ev := domain.Event{Type: domain.EventParseFailed, View: domain.ViewText, Message: err.Error()}
		var perr *domain.ParseError
		if errors.As(err, &perr) {
			ev.Message, ev.Line = perr.Message, perr.Line
		}
		s.emit(ev)
		return err
	}

	s.tree, s.snapshot = built, built.Clone()
	s.treeStale = false
	s.stats.TreeRebuilds++
	return nil
}

func (s *Synchronizer) enterText() error {
	if !s.textStale {
		return nil
	}
	if err := s.refreshText(); err != nil {
		return err
	}
	s.emit(domain.Event{Type: domain.EventContentChanged, View: domain.ViewText})
	return nil
}

// refreshText renders the tree into the text buffer. The buffer's change
// notification arrives while the guard is held and is dropped.
func (s *Synchronizer) refreshText() error {
	ran, err := s.propagate(domain.ViewTree, func() error {
		start := time.Now()
		text, err := s.codec.Serialize(s.tree.Value())
		if s.hooks.OnSerialize != nil {
			s.hooks.OnSerialize(time.Since(start), err)
		}
		if err != nil {
			if !errors.Is(err, domain.ErrSerialization) {
				err = &domain.SerializationError{Reason: "codec", Err: err}
			}
			return err
		}

		s.buf.Replace(text)
		s.textStale = false
		s.stats.TextRefreshes++
		return nil
	})
	if !ran {
		return errPropagating
	}
	return err
}

// CanonicalText returns the document text, rendering the tree first when the
// tree view is active and the text lags behind it.
func (s *Synchronizer) CanonicalText() (string, error) {
	if s.active == domain.ViewTree && s.textStale {
		if err := s.refreshText(); err != nil {
			return "", err
		}
	}
	return s.buf.Text(), nil
}

// Reformat rewrites the document text in canonical form. In the tree view
// the tree is rendered; in the text view the buffer is parsed and
// re-serialized, which counts as a text edit when the text changes.
func (s *Synchronizer) Reformat() error {
	if s.active == domain.ViewTree {
		_, err := s.CanonicalText()
		return err
	}

	v, err := s.codec.Parse(s.buf.Text())
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	text, err := s.codec.Serialize(v)
	if err != nil {
		return err
	}
	if text != s.buf.Text() {
		s.buf.Replace(text)
	}
	return nil
}

// Value returns the document content as a value. In the text view the
// buffer is parsed.
func (s *Synchronizer) Value() (domain.Value, error) {
	if s.tree != nil && (s.active == domain.ViewTree || !s.treeStale) {
		return s.tree.Value(), nil
	}
	return s.codec.Parse(s.buf.Text())
}

func (s *Synchronizer) emit(e domain.Event) {
	for _, l := range s.listeners {
		l(e)
	}
}

// mutate applies fn to the tree. Tree edits require the tree view. On
// failure the tree is restored from the last good snapshot.
func (s *Synchronizer) mutate(fn func(t *tree.Tree) error) error {
	if s.active != domain.ViewTree {
		return fmt.Errorf("%w: tree edits require the tree view", domain.ErrInvalidTarget)
	}
	if err := fn(s.tree); err != nil {
		s.tree = s.snapshot.Clone()
		return err
	}

	s.snapshot = s.tree.Clone()
	s.textStale = true
	s.revision++
	s.emit(domain.Event{Type: domain.EventContentChanged, View: domain.ViewTree})

	if s.mirror == MirrorEager {
		if err := s.refreshText(); err != nil && !errors.Is(err, errPropagating) {
			return err
		}
	}
	return nil
}

// AddChild appends a child holding v under parent and returns its id.
func (s *Synchronizer) AddChild(parent tree.NodeID, key string, v domain.Value) (tree.NodeID, error) {
	var id tree.NodeID
	err := s.mutate(func(t *tree.Tree) error {
		var err error
		id, err = t.AddChild(parent, key, v)
		return err
	})
	return id, err
}

// AddNode appends a new node of the given kind, initialized from raw
// (containers start empty).
func (s *Synchronizer) AddNode(parent tree.NodeID, key string, kind domain.Kind, raw string) (tree.NodeID, error) {
	v, err := scalar.Initial(kind, raw)
	if err != nil {
		return 0, err
	}
	return s.AddChild(parent, key, v)
}

// Delete removes a node and its subtree.
func (s *Synchronizer) Delete(id tree.NodeID) error {
	return s.mutate(func(t *tree.Tree) error {
		return t.Delete(id)
	})
}

// SetScalar coerces raw to the node's type. A coercion failure is reported
// to listeners and leaves the node at its last valid value.
func (s *Synchronizer) SetScalar(id tree.NodeID, raw string) (domain.Value, error) {
	var v domain.Value
	err := s.mutate(func(t *tree.Tree) error {
		var err error
		v, err = t.SetScalar(id, raw)
		return err
	})
	if errors.Is(err, domain.ErrInvalidValue) {
		s.emit(domain.Event{
			Type:    domain.EventValueCoercionFailed,
			View:    domain.ViewTree,
			Node:    id,
			Text:    raw,
			Message: err.Error(),
		})
	}
	return v, err
}

// Reorder moves a child of parent from one position to another.
func (s *Synchronizer) Reorder(parent tree.NodeID, from, to int) error {
	return s.mutate(func(t *tree.Tree) error {
		return t.Reorder(parent, from, to)
	})
}

// Rename changes a mapping key.
func (s *Synchronizer) Rename(id tree.NodeID, key string) error {
	return s.mutate(func(t *tree.Tree) error {
		return t.Rename(id, key)
	})
}

// ChangeType converts a node to another kind.
func (s *Synchronizer) ChangeType(id tree.NodeID, kind domain.Kind) error {
	return s.mutate(func(t *tree.Tree) error {
		return t.ChangeType(id, kind)
	})
}

// Batch applies several tree edits as a single mutation. If fn fails, none
// of its edits are kept.
func (s *Synchronizer) Batch(fn func(t *tree.Tree) error) error {
	return s.mutate(fn)
}

// Replace swaps the content of a node for v.
func (s *Synchronizer) Replace(id tree.NodeID, v domain.Value) error {
	return s.mutate(func(t *tree.Tree) error {
		return t.Replace(id, v)
	})
}
