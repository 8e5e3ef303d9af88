// Package atom implements the interned, deduplicated item pools that back
// the KLC image format: strings, type descriptors, type lists, prototypes,
// constants, variables, functions, code blobs, classes, fields, methods,
// traits, interface methods, and local-variable debug records.
//
// Every image cross-references other items by a (kind, index) pair into an
// [AtomTable] instead of embedding them: append-only item arrays plus a
// hash index for the kinds that must be deduplicated on insert (String,
// Type, TypeList, Proto, Const — the kinds spec.md §4.1 calls "structural
// sharing").
package atom

import "hash/fnv"

// Kind identifies which pool an item belongs to. The numeric values match
// the original KLC format's ITEM_* constants so image offsets and map
// entries line up with that reference layout.
type Kind int

const (
	KindMap Kind = iota
	KindString
	KindType
	KindTypeList
	KindProto
	KindConst
	KindLocalVar
	KindVar
	KindFunc
	KindCode
	KindClass
	KindField
	KindMethod
	KindTrait
	KindIMethod
	kindMax
)

// Item is anything storable in an AtomTable. Uniquable items additionally
// provide a content hash and an equality test so inserts can be deduplicated.
type Item interface {
	// hashEqual kinds implement Hashable; append-only kinds need nothing extra.
}

// Hashable is implemented by item kinds that support structural-sharing
// dedup: their Hash must be stable and Equal must agree with it.
type Hashable interface {
	Item
	Hash() uint64
	Equal(other Item) bool
}

// Table is an AtomTable: one append-only slice per Kind, with an auxiliary
// hash index for kinds whose items implement Hashable.
type Table struct {
	pools [kindMax][]Item
	index [kindMax]map[uint64][]int
}

// New creates an empty AtomTable.
func New() *Table {
	t := &Table{}
	for k := range t.index {
		t.index[k] = make(map[uint64][]int)
	}
	return t
}

// IndexOf looks up an item by content equality without inserting it. It only
// finds items that were inserted with unique=true.
func (t *Table) IndexOf(kind Kind, item Hashable) (int, bool) {
	h := item.Hash()
	for _, idx := range t.index[kind][h] {
		if item.Equal(t.pools[kind][idx]) {
			return idx, true
		}
	}
	return 0, false
}

// Insert appends item to the pool for kind and returns its new index. When
// unique is true and item is Hashable, it is also entered into the hash
// index so future IndexOf calls find it; a duplicate insert of a
// content-equal Hashable item returns the existing index instead of
// appending (interning idempotence, spec.md §8 property 1).
func (t *Table) Insert(kind Kind, item Item, unique bool) int {
	if unique {
		if h, ok := item.(Hashable); ok {
			if idx, found := t.IndexOf(kind, h); found {
				return idx
			}
			idx := len(t.pools[kind])
			t.pools[kind] = append(t.pools[kind], item)
			key := h.Hash()
			t.index[kind][key] = append(t.index[kind][key], idx)
			return idx
		}
	}
	idx := len(t.pools[kind])
	t.pools[kind] = append(t.pools[kind], item)
	return idx
}

// Get returns the item at the given (kind, index).
func (t *Table) Get(kind Kind, index int) Item {
	return t.pools[kind][index]
}

// Size returns the number of items stored for kind.
func (t *Table) Size(kind Kind) int {
	return len(t.pools[kind])
}

// Each calls fn for every item of kind, in insertion order.
func (t *Table) Each(kind Kind, fn func(index int, item Item)) {
	for i, it := range t.pools[kind] {
		fn(i, it)
	}
}

// hashString is the FNV-1a hash used by every Hashable item in this package,
// keeping one hash function across kinds rather than inventing per-kind
// mixing, matching the single fnv.New64a() use in object.String.HashKey.
func hashString(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// HashString exposes hashString outside this package; items.go calls
// hashString directly.
func HashString(s string) uint64 { return hashString(s) }

// mix combines two hashes into one (XOR, then multiply by the 64-bit FNV
// prime), for composite keys (e.g. a TypeItem's kind+dims+path+name).
func mix(a, b uint64) uint64 {
	const prime = 1099511628211
	return (a ^ b) * prime
}

// Mix exposes mix outside this package.
func Mix(a, b uint64) uint64 { return mix(a, b) }
