package model

import "strconv"

// Handle is the arrival sequence number the store assigns to a record.
// Handles start at 1 and are never reused; the zero Handle is invalid.
type Handle uint64

// Ref is the non-owning reference every index keeps for a record. The
// record itself lives in the store and is reached through Resolver.
type Ref struct {
	ID     uint32
	Handle Handle
}

// Valid reports whether r points at an admitted record.
func (r Ref) Valid() bool {
	return r.Handle != 0
}

// Resolver turns a Ref back into the record owned by the store. It reports
// false once the record has been evicted.
type Resolver interface {
	Resolve(ref Ref) (*Record, bool)
}

// IndexTag is the stable integer identifier of an index variant.
type IndexTag uint8

const (
	TagAVL IndexTag = iota
	TagRedBlack
	TagSkipList
	TagChainHash
	TagCuckoo
)

var tagNames = [...]string{"avl", "rbtree", "skiplist", "chainhash", "cuckoo"}

// AllTags lists every index variant in tag order.
func AllTags() []IndexTag {
	return []IndexTag{TagAVL, TagRedBlack, TagSkipList, TagChainHash, TagCuckoo}
}

func (t IndexTag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "index(" + strconv.Itoa(int(t)) + ")"
}

// ParseIndexTag accepts either the numeric tag or the variant name.
func ParseIndexTag(s string) (IndexTag, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n < len(tagNames) {
			return IndexTag(n), true
		}
		return 0, false
	}
	for i, name := range tagNames {
		if name == s {
			return IndexTag(i), true
		}
	}
	return 0, false
}

// Index is the keyed map contract shared by every index variant. Indexes
// are not safe for concurrent use; the engine mutates them from a single
// goroutine.
type Index interface {
	Tag() IndexTag
	Name() string

	// Insert adds ref keyed by ref.ID, replacing the stored Ref when the ID
	// is already present. It returns false for an invalid Ref.
	Insert(ref Ref) bool

	// Find returns the Ref stored for id.
	Find(id uint32) (Ref, bool)

	// Remove deletes id and reports whether it was present.
	Remove(id uint32) bool

	Len() int
}
