package tree

import (
	"fmt"
	"strconv"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/scalar"
)

// Item is a read-only view of one node, as a tree widget would display it.
type Item struct {
	ID     NodeID
	Parent NodeID // 0 for the root

	// Key is the mapping key, or the current position for sequence items.
	// It is empty for the root.
	Key        string
	Index      int
	InSequence bool

	Kind     domain.Kind
	Value    domain.Value // scalar value; Null for containers
	Text     string       // value column text, see scalar.Display
	Children int
}

// Item describes the node addressed by id.
func (t *Tree) Item(id NodeID) (Item, error) {
	n, err := t.get(id)
	if err != nil {
		return Item{}, err
	}
	return t.item(id, n), nil
}

func (t *Tree) item(id NodeID, n *node) Item {
	it := Item{
		ID:       id,
		Parent:   n.parent,
		Kind:     n.kind,
		Children: len(n.children),
	}
	if n.kind.IsScalar() {
		it.Value = n.value
		it.Text = scalar.Display(n.value)
	} else if n.kind == domain.KindSequence {
		it.Text = fmt.Sprintf("[%d]", len(n.children))
	} else {
		it.Text = fmt.Sprintf("{%d}", len(n.children))
	}

	if id != t.root {
		p := t.nodes[n.parent]
		for i, c := range p.children {
			if c == id {
				it.Index = i
				break
			}
		}
		if p.kind == domain.KindSequence {
			it.InSequence = true
			it.Key = strconv.Itoa(it.Index)
		} else {
			it.Key = n.key
		}
	}
	return it
}

// Walk visits every node depth-first in document order. Returning an error
// from fn stops the walk and is returned by Walk.
func (t *Tree) Walk(fn func(it Item, depth int) error) error {
	return t.walk(t.root, 0, fn)
}

func (t *Tree) walk(id NodeID, depth int, fn func(Item, int) error) error {
	n := t.nodes[id]
	if err := fn(t.item(id, n), depth); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := t.walk(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot is a nested copy of a subtree, shaped for JSON.
type Snapshot struct {
	ID       NodeID        `json:"id"`
	Key      string        `json:"key"`
	Kind     domain.Kind   `json:"type"`
	Value    *domain.Value `json:"value,omitempty"`
	Text     string        `json:"text"`
	Children []Snapshot    `json:"children,omitempty"`
}

// Snapshot copies the subtree rooted at id.
func (t *Tree) Snapshot(id NodeID) (Snapshot, error) {
	if _, err := t.get(id); err != nil {
		return Snapshot{}, err
	}
	return t.snapshot(id), nil
}

func (t *Tree) snapshot(id NodeID) Snapshot {
	n := t.nodes[id]
	it := t.item(id, n)
	s := Snapshot{ID: id, Key: it.Key, Kind: n.kind, Text: it.Text}
	if n.kind.IsScalar() {
		v := n.value
		s.Value = &v
	}
	for _, c := range n.children {
		s.Children = append(s.Children, t.snapshot(c))
	}
	return s
}

// Reader is the read-only surface of a Tree.
type Reader interface {
	Root() NodeID
	Len() int
	Has(id NodeID) bool
	Item(id NodeID) (Item, error)
	Children(id NodeID) ([]NodeID, error)
	Position(id NodeID) (int, error)
	Path(id NodeID) ([]string, error)
	Lookup(path ...string) (NodeID, error)
	Walk(fn func(it Item, depth int) error) error
	Snapshot(id NodeID) (Snapshot, error)
	Value() domain.Value
	ValueOf(id NodeID) (domain.Value, error)
}

var _ Reader = (*Tree)(nil)
