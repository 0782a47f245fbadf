// Package avl implements the height-balanced binary search tree index.
package avl

import (
	"fmt"
	"log/slog"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

func init() {
	factory.RegisterIndex(model.TagAVL.String(), func(_ config.IndexConfig, logger *slog.Logger) (model.Index, error) {
		return New(logger), nil
	})
}

type node struct {
	ref         model.Ref
	height      int
	left, right *node
}

// Tree is an AVL tree keyed by record ID.
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
	return &Tree{log: logger.With("component", "index", "index", model.TagAVL.String())}
}

func (t *Tree) Tag() model.IndexTag { return model.TagAVL }
func (t *Tree) Name() string        { return model.TagAVL.String() }
func (t *Tree) Len() int            { return t.size }

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func balance(n *node) int {
	if n == nil {
		return 0
	}
	return height(n.left) - height(n.right)
}

func update(n *node) {
	n.height = 1 + max(height(n.left), height(n.right))
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	update(y)
	update(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	update(x)
	update(y)
	return y
}

// rebalance restores the AVL property at n. A child balance of zero takes
// the single rotation, which is required after deletions.
func rebalance(n *node) *node {
	update(n)
	switch b := balance(n); {
	case b > 1:
		if balance(n.left) < 0 {
			n.left = rotateLeft(n.left)
		}
		return rotateRight(n)
	case b < -1:
		if balance(n.right) > 0 {
			n.right = rotateRight(n.right)
		}
		return rotateLeft(n)
	}
	return n
}

// Insert adds ref or replaces the Ref stored under the same ID.
func (t *Tree) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		t.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	var added bool
	t.root = t.insert(t.root, ref, &added)
	if added {
		t.size++
	}
	return true
}

func (t *Tree) insert(n *node, ref model.Ref, added *bool) *node {
	if n == nil {
		*added = true
		return &node{ref: ref, height: 1}
	}
	switch {
	case ref.ID < n.ref.ID:
		n.left = t.insert(n.left, ref, added)
	case ref.ID > n.ref.ID:
		n.right = t.insert(n.right, ref, added)
	default:
		n.ref = ref
		return n
	}
	return rebalance(n)
}

// Find returns the Ref stored for id.
func (t *Tree) Find(id uint32) (model.Ref, bool) {
	n := t.root
	for n != nil {
		switch {
		case id < n.ref.ID:
			n = n.left
		case id > n.ref.ID:
			n = n.right
		default:
			return n.ref, true
		}
	}
	return model.Ref{}, false
}

// Remove deletes id from the tree.
func (t *Tree) Remove(id uint32) bool {
	var removed bool
	t.root = remove(t.root, id, &removed)
	if removed {
		t.size--
	}
	return removed
}

func remove(n *node, id uint32, removed *bool) *node {
	if n == nil {
		return nil
	}
	switch {
	case id < n.ref.ID:
		n.left = remove(n.left, id, removed)
	case id > n.ref.ID:
		n.right = remove(n.right, id, removed)
	default:
		*removed = true
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		succ := n.right
		for succ.left != nil {
			succ = succ.left
		}
		n.ref = succ.ref
		var ignored bool
		n.right = remove(n.right, succ.ref.ID, &ignored)
	}
	return rebalance(n)
}

// Height returns the height of the tree, zero when empty.
func (t *Tree) Height() int {
	return height(t.root)
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

// Verify checks ordering, stored heights and the balance bound of every node.
func (t *Tree) Verify() error {
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
		return 0, nil
	}
	*count++
	id := n.ref.ID
	if (lo != nil && id <= *lo) || (hi != nil && id >= *hi) {
		return 0, fmt.Errorf("node %d violates search order", id)
	}
	lh, err := verify(n.left, lo, &id, count)
	if err != nil {
		return 0, err
	}
	rh, err := verify(n.right, &id, hi, count)
	if err != nil {
		return 0, err
	}
	if b := lh - rh; b > 1 || b < -1 {
		return 0, fmt.Errorf("node %d has balance %d", id, b)
	}
	h := 1 + max(lh, rh)
	if h != n.height {
		return 0, fmt.Errorf("node %d stores height %d, actual %d", id, n.height, h)
	}
	return h, nil
}
