// Package rbtree implements the red-black tree index. Nil child pointers are
// the black leaves; no sentinel node is shared between trees.
package rbtree

import (
	"errors"
	"fmt"
	"log/slog"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func init() {
	factory.RegisterIndex(model.TagRedBlack.String(), func(_ config.IndexConfig, logger *slog.Logger) (model.Index, error) {
		return New(logger), nil
	})
}

type color bool

const (
	red   color = false
	black color = true
)

type node struct {
	ref                 model.Ref
	color               color
	left, right, parent *node
}

func isRed(n *node) bool {
	return n != nil && n.color == red
}

// Tree is a red-black tree keyed by record ID.
type Tree struct {
	root *node
	size int
	log  *slog.Logger
}

// New returns an empty tree.
func New(logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{log: logger.With("component", "index", "index", model.TagRedBlack.String())}
}

func (t *Tree) Tag() model.IndexTag { return model.TagRedBlack }
func (t *Tree) Name() string        { return model.TagRedBlack.String() }
func (t *Tree) Len() int            { return t.size }

func (t *Tree) rotateLeft(x *node) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *Tree) rotateRight(x *node) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		t.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

// Insert adds ref or replaces the Ref stored under the same ID.
func (t *Tree) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		t.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	var parent *node
	cur := t.root
	for cur != nil {
		parent = cur
		switch {
		case ref.ID < cur.ref.ID:
			cur = cur.left
		case ref.ID > cur.ref.ID:
			cur = cur.right
		default:
			cur.ref = ref
			return true
		}
	}
	z := &node{ref: ref, color: red, parent: parent}
	switch {
	case parent == nil:
		t.root = z
	case ref.ID < parent.ref.ID:
		parent.left = z
	default:
		parent.right = z
	}
	t.size++
	t.insertFixup(z)
	return true
}

func (t *Tree) insertFixup(z *node) {
	for isRed(z.parent) {
		p := z.parent
		g := p.parent // a red parent is never the root
		if p == g.left {
			if u := g.right; isRed(u) {
				p.color, u.color, g.color = black, black, red
				z = g
				continue
			}
			if z == p.right {
				z = p
				t.rotateLeft(z)
				p = z.parent
			}
			p.color, g.color = black, red
			t.rotateRight(g)
		} else {
			if u := g.left; isRed(u) {
				p.color, u.color, g.color = black, black, red
				z = g
				continue
			}
			if z == p.left {
				z = p
				t.rotateRight(z)
				p = z.parent
			}
			p.color, g.color = black, red
			t.rotateLeft(g)
		}
	}
	t.root.color = black
}

func (t *Tree) lookup(id uint32) *node {
	n := t.root
	for n != nil {
		switch {
		case id < n.ref.ID:
			n = n.left
		case id > n.ref.ID:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// Find returns the Ref stored for id.
func (t *Tree) Find(id uint32) (model.Ref, bool) {
	if n := t.lookup(id); n != nil {
		return n.ref, true
	}
	return model.Ref{}, false
}

// transplant replaces the subtree rooted at u with the one rooted at v.
func (t *Tree) transplant(u, v *node) {
	switch {
	case u.parent == nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

// Remove deletes id from the tree.
func (t *Tree) Remove(id uint32) bool {
	z := t.lookup(id)
	if z == nil {
		return false
	}

	// x takes y's place and may be a nil leaf, so its parent is tracked
	// separately for the fixup.
	var x, xParent *node
	removedColor := z.color
	switch {
	case z.left == nil:
		x, xParent = z.right, z.parent
		t.transplant(z, z.right)
	case z.right == nil:
		x, xParent = z.left, z.parent
		t.transplant(z, z.left)
	default:
		y := z.right
		for y.left != nil {
			y = y.left
		}
		removedColor = y.color
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}
	t.size--

	if removedColor == black {
		t.deleteFixup(x, xParent)
	}
	return true
}

func (t *Tree) deleteFixup(x, parent *node) {
	for x != t.root && !isRed(x) {
		if x == parent.left {
			w := parent.right
			if isRed(w) {
				w.color, parent.color = black, red
				t.rotateLeft(parent)
				w = parent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.color = red
				x, parent = parent, parent.parent
				continue
			}
			if !isRed(w.right) {
				w.left.color, w.color = black, red
				t.rotateRight(w)
				w = parent.right
			}
			w.color, parent.color = parent.color, black
			w.right.color = black
			t.rotateLeft(parent)
			x, parent = t.root, nil
		} else {
			w := parent.left
			if isRed(w) {
				w.color, parent.color = black, red
				t.rotateRight(parent)
				w = parent.left
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.color = red
				x, parent = parent, parent.parent
				continue
			}
			if !isRed(w.left) {
				w.right.color, w.color = black, red
				t.rotateLeft(w)
				w = parent.left
			}
			w.color, parent.color = parent.color, black
			w.left.color = black
			t.rotateRight(parent)
			x, parent = t.root, nil
		}
	}
	if x != nil {
		x.color = black
	}
}

// Ascend calls fn in ascending ID order until fn returns false.
func (t *Tree) Ascend(fn func(ref model.Ref) bool) {
	ascend(t.root, fn)
}

func ascend(n *node, fn func(model.Ref) bool) bool {
	if n == nil {
		return true
	}
	return ascend(n.left, fn) && fn(n.ref) && ascend(n.right, fn)
}

// BlackHeight counts black nodes on the leftmost root-to-leaf path.
func (t *Tree) BlackHeight() int {
	h := 0
	for n := t.root; n != nil; n = n.left {
		if n.color == black {
			h++
		}
	}
	return h
}

var errRedRoot = errors.New("root is red")

// Verify checks search order, parent links, that no red node has a red child
// and that every root-to-leaf path carries the same number of black nodes.
func (t *Tree) Verify() error {
	if isRed(t.root) {
		return errRedRoot
	}
	if t.root != nil && t.root.parent != nil {
		return fmt.Errorf("root %d has a parent", t.root.ref.ID)
	}
	count := 0
	if _, err := verify(t.root, nil, nil, &count); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("size %d does not match %d reachable nodes", t.size, count)
	}
	return nil
}

func verify(n *node, lo, hi *uint32, count *int) (int, error) {
	if n == nil {
		return 1, nil
	}
	*count++
	id := n.ref.ID
	if (lo != nil && id <= *lo) || (hi != nil && id >= *hi) {
		return 0, fmt.Errorf("node %d violates search order", id)
	}
	for _, c := range []*node{n.left, n.right} {
		if c == nil {
			continue
		}
		if c.parent != n {
			return 0, fmt.Errorf("node %d has a stale parent link", c.ref.ID)
		}
		if isRed(n) && isRed(c) {
			return 0, fmt.Errorf("red node %d has red child %d", id, c.ref.ID)
		}
	}
	lb, err := verify(n.left, lo, &id, count)
	if err != nil {
		return 0, err
	}
	rb, err := verify(n.right, &id, hi, count)
	if err != nil {
		return 0, err
	}
	if lb != rb {
		return 0, fmt.Errorf("node %d has black heights %d and %d", id, lb, rb)
	}
	if n.color == black {
		lb++
	}
	return lb, nil
}
