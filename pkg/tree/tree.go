package tree

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/scalar"
)

// NodeID addresses a node of a Tree.
type NodeID = domain.NodeID

// node is an arena slot. parent is a back-reference; children are owned.
type node struct {
	parent   NodeID
	key      string // mapping key; unused for sequence items
	kind     domain.Kind
	value    domain.Value // scalars only
	children []NodeID
}

// Tree is an ordered, mutable model of one YAML document.
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes map[NodeID]*node
	root  NodeID
	next  NodeID
}

// New returns a tree holding an empty mapping.
func New() *Tree {
	return FromValue(domain.Mapping())
}

// FromValue materializes v as a tree. Every node gets a fresh NodeID.
func FromValue(v domain.Value) *Tree {
	t := &Tree{nodes: make(map[NodeID]*node)}
	t.root = t.build(0, "", v)
	return t
}

func (t *Tree) build(parent NodeID, key string, v domain.Value) NodeID {
	t.next++
	id := t.next
	n := &node{parent: parent, key: key, kind: v.Kind()}
	t.nodes[id] = n

	switch v.Kind() {
	case domain.KindMapping:
		entries := v.Entries()
		n.children = make([]NodeID, 0, len(entries))
		for _, e := range entries {
			n.children = append(n.children, t.build(id, e.Key, e.Value))
		}
	case domain.KindSequence:
		items := v.Items()
		n.children = make([]NodeID, 0, len(items))
		for _, item := range items {
			n.children = append(n.children, t.build(id, "", item))
		}
	default:
		n.value = v
	}
	return id
}

// Root returns the id of the document root.
func (t *Tree) Root() NodeID { return t.root }

// Len is the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Has reports whether id addresses a live node.
func (t *Tree) Has(id NodeID) bool {
	_, ok := t.nodes[id]
	return ok
}

func (t *Tree) get(id NodeID) (*node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", domain.ErrNodeNotFound, id)
	}
	return n, nil
}

// Value converts the whole tree back into a value.
func (t *Tree) Value() domain.Value {
	return t.valueOf(t.root)
}

// ValueOf converts the subtree rooted at id into a value. Sequence items are
// emitted in child order.
func (t *Tree) ValueOf(id NodeID) (domain.Value, error) {
	if _, err := t.get(id); err != nil {
		return domain.Value{}, err
	}
	return t.valueOf(id), nil
}

func (t *Tree) valueOf(id NodeID) domain.Value {
	n := t.nodes[id]
	switch n.kind {
	case domain.KindMapping:
		entries := make([]domain.Entry, 0, len(n.children))
		for _, c := range n.children {
			entries = append(entries, domain.E(t.nodes[c].key, t.valueOf(c)))
		}
		return domain.Mapping(entries...)
	case domain.KindSequence:
		items := make([]domain.Value, 0, len(n.children))
		for _, c := range n.children {
			items = append(items, t.valueOf(c))
		}
		return domain.Sequence(items...)
	}
	return n.value
}

// Children returns the ordered child ids of a node (nil for scalars).
func (t *Tree) Children(id NodeID) ([]NodeID, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return slices.Clone(n.children), nil
}

// Clone returns a deep copy that keeps every NodeID.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes: make(map[NodeID]*node, len(t.nodes)),
		root:  t.root,
		next:  t.next,
	}
	for id, n := range t.nodes {
		cp := *n
		cp.children = slices.Clone(n.children)
		c.nodes[id] = &cp
	}
	return c
}

// AddChild appends a new child holding v. For mapping parents key must not be
// taken by a sibling; for sequence parents key is ignored and the child takes
// the next position.
func (t *Tree) AddChild(parent NodeID, key string, v domain.Value) (NodeID, error) {
	p, err := t.get(parent)
	if err != nil {
		return 0, err
	}
	switch p.kind {
	case domain.KindMapping:
		if t.hasKey(p, key, 0) {
			return 0, fmt.Errorf("%w: key %q already exists", domain.ErrInvalidTarget, key)
		}
	case domain.KindSequence:
		key = ""
	default:
		return 0, fmt.Errorf("%w: cannot add a child to a %s", domain.ErrInvalidTarget, p.kind)
	}

	id := t.build(parent, key, v)
	p.children = append(p.children, id)
	return id, nil
}

// hasKey reports whether a child of mapping p other than except uses key.
func (t *Tree) hasKey(p *node, key string, except NodeID) bool {
	for _, c := range p.children {
		if c != except && t.nodes[c].key == key {
			return true
		}
	}
	return false
}

// Delete removes a node and its subtree. Later siblings in a sequence shift
// down one position. The root cannot be deleted.
func (t *Tree) Delete(id NodeID) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if id == t.root {
		return fmt.Errorf("%w: cannot delete the root", domain.ErrInvalidTarget)
	}

	p := t.nodes[n.parent]
	p.children = slices.DeleteFunc(p.children, func(c NodeID) bool { return c == id })
	t.drop(id)
	return nil
}

func (t *Tree) drop(id NodeID) {
	for _, c := range t.nodes[id].children {
		t.drop(c)
	}
	delete(t.nodes, id)
}

// SetScalar coerces raw to the node's current kind and stores the result.
// On a coercion failure the node keeps its previous value.
func (t *Tree) SetScalar(id NodeID, raw string) (domain.Value, error) {
	n, err := t.get(id)
	if err != nil {
		return domain.Value{}, err
	}
	if !n.kind.IsScalar() {
		return domain.Value{}, fmt.Errorf("%w: %s has no scalar value", domain.ErrInvalidTarget, n.kind)
	}

	v, err := scalar.Coerce(raw, n.kind)
	if err != nil {
		return domain.Value{}, err
	}
	n.value = v
	return v, nil
}

// Reorder moves the child at position from to position to.
// Sequence positions are renumbered, mapping keys are unaffected.
func (t *Tree) Reorder(parent NodeID, from, to int) error {
	p, err := t.get(parent)
	if err != nil {
		return err
	}
	if !p.kind.IsContainer() {
		return fmt.Errorf("%w: a %s has no children", domain.ErrInvalidTarget, p.kind)
	}
	last := len(p.children) - 1
	if from < 0 || from > last || to < 0 || to > last {
		return fmt.Errorf("%w: cannot move position %d to %d among %d children", domain.ErrInvalidTarget, from, to, len(p.children))
	}
	if from == to {
		return nil
	}

	id := p.children[from]
	p.children = slices.Delete(p.children, from, from+1)
	p.children = slices.Insert(p.children, to, id)
	return nil
}

// Rename changes the key of a mapping child, keeping its position and value.
// Sequence positions are derived and cannot be renamed.
func (t *Tree) Rename(id NodeID, key string) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if id == t.root {
		return fmt.Errorf("%w: the root has no key", domain.ErrInvalidTarget)
	}
	p := t.nodes[n.parent]
	if p.kind == domain.KindSequence {
		return fmt.Errorf("%w: sequence positions cannot be renamed", domain.ErrInvalidTarget)
	}
	if n.key == key {
		return nil
	}
	if t.hasKey(p, key, id) {
		return fmt.Errorf("%w: key %q already exists", domain.ErrInvalidTarget, key)
	}
	n.key = key
	return nil
}

// ChangeType converts a node to another kind. Between scalar kinds the
// displayed text is coerced to the new kind; any change involving a container
// replaces the node with the empty value of the new kind.
func (t *Tree) ChangeType(id NodeID, kind domain.Kind) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown type %d", domain.ErrInvalidValue, kind)
	}
	if n.kind == kind {
		return nil
	}

	if n.kind.IsScalar() && kind.IsScalar() {
		v, err := scalar.Coerce(scalar.Display(n.value), kind)
		if err != nil {
			return err
		}
		n.kind, n.value = kind, v
		return nil
	}
	return t.Replace(id, scalar.Zero(kind))
}

// Replace swaps the content of a node for v. The node keeps its id, key and
// position; the previous subtree is discarded.
func (t *Tree) Replace(id NodeID, v domain.Value) error {
	n, err := t.get(id)
	if err != nil {
		return err
	}
	for _, c := range n.children {
		t.drop(c)
	}

	// Rebuild in a scratch slot, then move the content onto n.
	tmp := t.build(n.parent, n.key, v)
	built := t.nodes[tmp]
	delete(t.nodes, tmp)
	for _, c := range built.children {
		t.nodes[c].parent = id
	}
	n.kind, n.value, n.children = built.kind, built.value, built.children
	return nil
}

// Position returns the index of a node among its siblings (0 for the root).
func (t *Tree) Position(id NodeID) (int, error) {
	n, err := t.get(id)
	if err != nil {
		return 0, err
	}
	if id == t.root {
		return 0, nil
	}
	return slices.Index(t.nodes[n.parent].children, id), nil
}

// Path returns the segments leading from the root to id. Sequence positions
// are rendered as decimal numbers.
func (t *Tree) Path(id NodeID) ([]string, error) {
	if _, err := t.get(id); err != nil {
		return nil, err
	}
	var path []string
	for cur := id; cur != t.root; cur = t.nodes[cur].parent {
		path = append(path, t.keyOf(cur))
	}
	slices.Reverse(path)
	return path, nil
}

// keyOf is the display key of a non-root node: the mapping key or the
// current sequence position.
func (t *Tree) keyOf(id NodeID) string {
	n := t.nodes[id]
	p := t.nodes[n.parent]
	if p.kind == domain.KindSequence {
		return strconv.Itoa(slices.Index(p.children, id))
	}
	return n.key
}

// Lookup resolves a path of mapping keys and sequence positions from the root.
func (t *Tree) Lookup(path ...string) (NodeID, error) {
	cur := t.root
	for i, seg := range path {
		n := t.nodes[cur]
		next, ok := t.child(n, seg)
		if !ok {
			return 0, fmt.Errorf("%w: no %q under %v", domain.ErrNodeNotFound, seg, path[:i])
		}
		cur = next
	}
	return cur, nil
}

func (t *Tree) child(n *node, seg string) (NodeID, bool) {
	switch n.kind {
	case domain.KindMapping:
		for _, c := range n.children {
			if t.nodes[c].key == seg {
				return c, true
			}
		}
	case domain.KindSequence:
		i, err := strconv.Atoi(seg)
		if err == nil && i >= 0 && i < len(n.children) {
			return n.children[i], true
		}
	}
	return 0, false
}
