// Package skiplist implements the probabilistic skip list index.
package skiplist

import (
	"log/slog"
	"math/rand/v2"

	"FlowSpectra/internal/config"
	"FlowSpectra/internal/factory"
	"FlowSpectra/internal/model"
)

const (
	DefaultMaxLevel = 16
	DefaultP        = 0.5
)

func init() {
	factory.RegisterIndex(model.TagSkipList.String(), func(cfg config.IndexConfig, logger *slog.Logger) (model.Index, error) {
		return New(cfg.SkipListMaxLevel, cfg.SkipListP, cfg.SkipListSeed, logger), nil
	})
}

type node struct {
	ref  model.Ref
	next []*node // one forward pointer per level of this node
}

// List is a skip list keyed by record ID.
type List struct {
	head     *node
	level    int // levels currently in use, at least 1
	maxLevel int
	p        float64
	size     int
	rng      *rand.Rand
	log      *slog.Logger
}

// New returns an empty list. Out-of-range maxLevel or p fall back to the
// defaults; a zero seed draws one at random.
func New(maxLevel int, p float64, seed uint64, logger *slog.Logger) *List {
	if maxLevel <= 0 {
		maxLevel = DefaultMaxLevel
	}
	if p < 0 || p >= 1 {
		p = DefaultP
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		head:     &node{next: make([]*node, maxLevel)},
		level:    1,
		maxLevel: maxLevel,
		p:        p,
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		log:      logger.With("component", "index", "index", model.TagSkipList.String()),
	}
}

func (l *List) Tag() model.IndexTag { return model.TagSkipList }
func (l *List) Name() string        { return model.TagSkipList.String() }
func (l *List) Len() int            { return l.size }

// Level returns the number of levels currently in use.
func (l *List) Level() int { return l.level }

func (l *List) randomLevel() int {
	lvl := 1
	for lvl < l.maxLevel && l.rng.Float64() < l.p {
		lvl++
	}
	return lvl
}

// predecessors fills update with the last node before id on every level and
// returns the level-0 candidate.
func (l *List) predecessors(id uint32, update []*node) *node {
	x := l.head
	for i := l.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].ref.ID < id {
			x = x.next[i]
		}
		if update != nil {
			update[i] = x
		}
	}
	return x.next[0]
}

// Insert adds ref or replaces the Ref stored under the same ID.
func (l *List) Insert(ref model.Ref) bool {
	if !ref.Valid() {
		l.log.Warn("rejecting invalid ref", "id", ref.ID)
		return false
	}
	update := make([]*node, l.maxLevel)
	if x := l.predecessors(ref.ID, update); x != nil && x.ref.ID == ref.ID {
		x.ref = ref
		return true
	}

	lvl := l.randomLevel()
	for i := l.level; i < lvl; i++ {
		update[i] = l.head
	}
	l.level = max(l.level, lvl)

	n := &node{ref: ref, next: make([]*node, lvl)}
	for i := 0; i < lvl; i++ {
		n.next[i] = update[i].next[i]
		update[i].next[i] = n
	}
	l.size++
	return true
}

// Find returns the Ref stored for id.
func (l *List) Find(id uint32) (model.Ref, bool) {
	if x := l.predecessors(id, nil); x != nil && x.ref.ID == id {
		return x.ref, true
	}
	return model.Ref{}, false
}

// Remove deletes id and drops levels left empty.
func (l *List) Remove(id uint32) bool {
	update := make([]*node, l.maxLevel)
	x := l.predecessors(id, update)
	if x == nil || x.ref.ID != id {
		return false
	}
	for i := 0; i < len(x.next); i++ {
		update[i].next[i] = x.next[i]
	}
	for l.level > 1 && l.head.next[l.level-1] == nil {
		l.level--
	}
	l.size--
	return true
}

// Ascend calls fn in ascending ID order until fn returns false.
func (l *List) Ascend(fn func(ref model.Ref) bool) {
	for x := l.head.next[0]; x != nil; x = x.next[0] {
		if !fn(x.ref) {
			return
		}
	}
}
