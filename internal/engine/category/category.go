// Package category maintains an inverted index from categorical attribute
// values to the records carrying them.
package category

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/roaring64"

	"FlowSpectra/internal/model"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownValue     = errors.New("unknown attribute value")
)

// Attribute is a categorical field of a Record.
type Attribute uint8

const (
	AttrProtocol Attribute = iota
	AttrService
	AttrState
	AttrAttackCategory
	AttrLabel
	numAttributes
)

var attributeNames = [numAttributes]string{"protocol", "service", "state", "attack_category", "label"}

func (a Attribute) String() string {
	if a < numAttributes {
		return attributeNames[a]
	}
	return "attribute(" + strconv.Itoa(int(a)) + ")"
}

// Attributes lists every indexed attribute.
func Attributes() []Attribute {
	return []Attribute{AttrProtocol, AttrService, AttrState, AttrAttackCategory, AttrLabel}
}

// ParseAttribute maps an attribute name to its Attribute. "proto" and
// "attack_cat" are accepted as the record field spellings.
func ParseAttribute(s string) (Attribute, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "proto":
		return AttrProtocol, nil
	case "attack_cat", "attack":
		return AttrAttackCategory, nil
	}
	for i, name := range attributeNames {
		if name == s {
			return Attribute(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
}

// ParseValue maps a value name of attribute a to its code.
func ParseValue(a Attribute, s string) (uint8, error) {
	var (
		v   uint8
		err error
	)
	switch a {
	case AttrProtocol:
		var p model.Protocol
		p, err = model.ParseProtocol(s)
		v = uint8(p)
	case AttrService:
		var sv model.Service
		sv, err = model.ParseService(s)
		v = uint8(sv)
	case AttrState:
		var st model.State
		st, err = model.ParseState(s)
		v = uint8(st)
	case AttrAttackCategory:
		var ac model.AttackCategory
		ac, err = model.ParseAttackCategory(s)
		v = uint8(ac)
	case AttrLabel:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "0", "false", "normal":
			v = 0
		case "1", "true", "attack":
			v = 1
		default:
			err = fmt.Errorf("label %q", s)
		}
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownAttribute, a)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnknownValue, a, err)
	}
	return v, nil
}

func valueOf(a Attribute, r *model.Record) uint8 {
	switch a {
	case AttrProtocol:
		return uint8(r.Proto)
	case AttrService:
		return uint8(r.Service)
	case AttrState:
		return uint8(r.State)
	case AttrAttackCategory:
		return uint8(r.AttackCat)
	case AttrLabel:
		if r.Label {
			return 1
		}
	}
	return 0
}

// Source is the record owner the index reads from when resolving postings
// and rebuilding.
type Source interface {
	At(h model.Handle) (*model.Record, bool)
	Ascend(fn func(ref model.Ref, rec *model.Record) bool)
}

// Index maps every (attribute, value) pair to the bitmap of arrival handles
// of the records carrying it. Handles ascend with arrival, so iterating a
// bitmap yields records in insertion order.
type Index struct {
	src      Source
	postings [numAttributes]map[uint8]*roaring64.Bitmap
	size     int
	log      *slog.Logger
}

// New returns an empty index reading records from src.
func New(src Source, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	x := &Index{src: src, log: logger.With("component", "category")}
	x.reset()
	return x
}

func (x *Index) reset() {
	for i := range x.postings {
		x.postings[i] = make(map[uint8]*roaring64.Bitmap)
	}
	x.size = 0
}

// Len returns the number of indexed records.
func (x *Index) Len() int { return x.size }

// Add indexes rec under every attribute.
func (x *Index) Add(ref model.Ref, rec *model.Record) {
	h := uint64(ref.Handle)
	for _, a := range Attributes() {
		v := valueOf(a, rec)
		bm, ok := x.postings[a][v]
		if !ok {
			bm = roaring64.New()
			x.postings[a][v] = bm
		}
		if bm.CheckedAdd(h) && a == AttrProtocol {
			x.size++
		}
	}
}

// Remove drops rec from every posting it appears in. Emptied postings are
// deleted.
func (x *Index) Remove(ref model.Ref, rec *model.Record) bool {
	h := uint64(ref.Handle)
	removed := false
	for _, a := range Attributes() {
		v := valueOf(a, rec)
		bm, ok := x.postings[a][v]
		if !ok {
			continue
		}
		if bm.CheckedRemove(h) {
			removed = true
			if a == AttrProtocol {
				x.size--
			}
		}
		if bm.IsEmpty() {
			delete(x.postings[a], v)
		}
	}
	return removed
}

// Rebuild discards every posting and re-scans the source.
func (x *Index) Rebuild() {
	x.reset()
	x.src.Ascend(func(ref model.Ref, rec *model.Record) bool {
		x.Add(ref, rec)
		return true
	})
	x.log.Debug("category index rebuilt", "records", x.size)
}

// Lookup returns the records whose attribute equals the named value, in
// insertion order.
func (x *Index) Lookup(attr, value string) ([]model.Ref, error) {
	a, v, err := x.parse(attr, value)
	if err != nil {
		return nil, err
	}
	bm, ok := x.postings[a][v]
	if !ok {
		return []model.Ref{}, nil
	}
	out := make([]model.Ref, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		h := model.Handle(it.Next())
		rec, ok := x.src.At(h)
		if !ok {
			x.log.Warn("posting points at an evicted record", "attribute", a.String(), "handle", uint64(h))
			continue
		}
		out = append(out, model.Ref{ID: rec.ID, Handle: h})
	}
	return out, nil
}

// Count returns the number of records whose attribute equals the named value.
func (x *Index) Count(attr, value string) (int, error) {
	a, v, err := x.parse(attr, value)
	if err != nil {
		return 0, err
	}
	if bm, ok := x.postings[a][v]; ok {
		return int(bm.GetCardinality()), nil
	}
	return 0, nil
}

// Contains reports whether ref is indexed under every attribute of rec.
func (x *Index) Contains(ref model.Ref, rec *model.Record) bool {
	for _, a := range Attributes() {
		bm, ok := x.postings[a][valueOf(a, rec)]
		if !ok || !bm.Contains(uint64(ref.Handle)) {
			return false
		}
	}
	return true
}

// Distribution returns the count of records per value name of attr.
func (x *Index) Distribution(attr string) (map[string]int, error) {
	a, err := ParseAttribute(attr)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(x.postings[a]))
	for v, bm := range x.postings[a] {
		out[valueName(a, v)] = int(bm.GetCardinality())
	}
	return out, nil
}

func valueName(a Attribute, v uint8) string {
	switch a {
	case AttrProtocol:
		return model.Protocol(v).String()
	case AttrService:
		return model.Service(v).String()
	case AttrState:
		return model.State(v).String()
	case AttrAttackCategory:
		return model.AttackCategory(v).String()
	}
	if v == 1 {
		return "attack"
	}
	return "normal"
}

func (x *Index) parse(attr, value string) (Attribute, uint8, error) {
	a, err := ParseAttribute(attr)
	if err != nil {
		return 0, 0, err
	}
	v, err := ParseValue(a, value)
	if err != nil {
		return 0, 0, err
	}
	return a, v, nil
}
