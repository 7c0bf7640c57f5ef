package platform

import (
	"fmt"
	"sort"
)

// Node is one window in an in-memory tree or a tree dump.
type Node struct {
	ID       WindowID `yaml:"id,omitempty" json:"id"`
	Class    string   `yaml:"class" json:"class"`
	Text     string   `yaml:"text,omitempty" json:"text,omitempty"`
	Rect     Rect     `yaml:"rect" json:"rect"`
	Children []*Node  `yaml:"children,omitempty" json:"children,omitempty"`
}

type memEntry struct {
	node      *Node
	parent    WindowID
	hasParent bool
	destroyed bool
}

// MemoryTree is a static window tree held in memory. It backs offline replay
// of captured dumps and synthetic trees in tests.
type MemoryTree struct {
	roots   []*Node
	entries map[WindowID]*memEntry
	order   func([]WindowID)
}

var _ Tree = (*MemoryTree)(nil)

// NewMemoryTree indexes the given top-level windows. Nodes with a zero ID are
// assigned fresh IDs; duplicate non-zero IDs are an error.
func NewMemoryTree(roots ...*Node) (*MemoryTree, error) {
	t := &MemoryTree{
		roots:   roots,
		entries: make(map[WindowID]*memEntry),
	}

	var maxID WindowID
	var walkMax func(n *Node)
	walkMax = func(n *Node) {
		if n.ID > maxID {
			maxID = n.ID
		}
		for _, c := range n.Children {
			walkMax(c)
		}
	}
	for _, r := range roots {
		walkMax(r)
	}

	next := maxID + 1
	var index func(n *Node, parent WindowID, hasParent bool) error
	index = func(n *Node, parent WindowID, hasParent bool) error {
		if n == nil {
			return fmt.Errorf("nil node under window %d", parent)
		}
		if n.ID == 0 {
			n.ID = next
			next++
		}
		if _, dup := t.entries[n.ID]; dup {
			return fmt.Errorf("duplicate window id %d", n.ID)
		}
		t.entries[n.ID] = &memEntry{node: n, parent: parent, hasParent: hasParent}
		for _, c := range n.Children {
			if err := index(c, n.ID, true); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := index(r, 0, false); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Roots returns the top-level nodes.
func (t *MemoryTree) Roots() []*Node {
	return t.roots
}

// SetOrder installs a function that reorders every enumeration result in
// place, to mimic window systems that report siblings in arbitrary order.
func (t *MemoryTree) SetOrder(fn func([]WindowID)) {
	t.order = fn
}

// Destroy invalidates a window and its subtree.
func (t *MemoryTree) Destroy(id WindowID) {
	e, ok := t.entries[id]
	if !ok {
		return
	}
	e.destroyed = true
	for _, c := range e.node.Children {
		t.Destroy(c.ID)
	}
}

// SetText changes a live window's text.
func (t *MemoryTree) SetText(id WindowID, text string) {
	if e := t.live(id); e != nil {
		e.node.Text = text
	}
}

// Node returns the live node for id.
func (t *MemoryTree) Node(id WindowID) (*Node, bool) {
	e := t.live(id)
	if e == nil {
		return nil, false
	}
	return e.node, true
}

func (t *MemoryTree) live(id WindowID) *memEntry {
	e, ok := t.entries[id]
	if !ok || e.destroyed {
		return nil
	}
	return e
}

func (t *MemoryTree) ordered(ids []WindowID) []WindowID {
	if t.order != nil {
		t.order(ids)
	}
	return ids
}

func (t *MemoryTree) TopLevelWindows(className string) []WindowID {
	var out []WindowID
	for _, r := range t.roots {
		if e := t.live(r.ID); e != nil && r.Class == className {
			out = append(out, r.ID)
		}
	}
	return t.ordered(out)
}

func (t *MemoryTree) Children(id WindowID) []WindowID {
	e := t.live(id)
	if e == nil {
		return nil
	}
	out := make([]WindowID, 0, len(e.node.Children))
	for _, c := range e.node.Children {
		if t.live(c.ID) != nil {
			out = append(out, c.ID)
		}
	}
	return t.ordered(out)
}

func (t *MemoryTree) Text(id WindowID) string {
	if e := t.live(id); e != nil {
		return e.node.Text
	}
	return ""
}

func (t *MemoryTree) ClassName(id WindowID) string {
	if e := t.live(id); e != nil {
		return e.node.Class
	}
	return ""
}

func (t *MemoryTree) Rect(id WindowID) Rect {
	if e := t.live(id); e != nil {
		return e.node.Rect
	}
	return Rect{}
}

func (t *MemoryTree) Parent(id WindowID) (WindowID, bool) {
	e := t.live(id)
	if e == nil || !e.hasParent {
		return 0, false
	}
	return e.parent, true
}

// IDs returns every live window ID in ascending order.
func (t *MemoryTree) IDs() []WindowID {
	ids := make([]WindowID, 0, len(t.entries))
	for id, e := range t.entries {
		if !e.destroyed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
