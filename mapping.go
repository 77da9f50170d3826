package korniszon
// Mapping, Set and FrozenSet: the unordered, Python-equality-keyed
// container kinds of the value domain (§3). All three are backed by
// gomap.Map with the same equal/hash pair: Mapping holds a gomap.Map
// directly, while Set and FrozenSet share the membership-only pyset type —
// the same role the teacher package's Dict plays, generalized per
// SPEC_FULL.md.

import (
	"fmt"
	"sort"

	"github.com/aristanetworks/gomap"
)

// Mapping is an unordered collection of unique, Python-equality-compared
// keys, each associated with a value. Insertion order is not preserved
// across encode/decode (§3: "insertion order need not be preserved
// cross-version").
//
// Mapping is pointer-like, like a builtin map: its zero value is an empty,
// write-invalid mapping. Use NewMapping.
type Mapping struct {
	m *gomap.Map[any, any]
}

// NewMapping returns a new, empty Mapping.
func NewMapping() Mapping { return NewMappingSize(0) }

// NewMappingSize returns a new, empty Mapping preallocated for size items.
func NewMappingSize(size int) Mapping {
	return Mapping{m: gomap.NewHint[any, any](size, equal, hash)}
}

// NewMappingFrom returns a Mapping populated from key1, value1, key2,
// value2, ... .
func NewMappingFrom(kv ...any) Mapping {
	if len(kv)%2 != 0 {
		panic("korniszon: NewMappingFrom: odd number of arguments")
	}
	d := NewMappingSize(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

// Get returns the value associated with an equal key, or nil if absent.
func (d Mapping) Get(key any) any {
	v, _ := d.Get_(key)
	return v
}

// Get_ is the comma-ok form of Get.
func (d Mapping) Get_(key any) (value any, ok bool) { return d.m.Get(key) }

// Set associates key with value, replacing any existing equal key.
func (d Mapping) Set(key, value any) { d.m.Set(key, value) }

// Del removes any entry with an equal key.
func (d Mapping) Del(key any) { d.m.Delete(key) }

// Len returns the number of entries.
func (d Mapping) Len() int { return d.m.Len() }

// Iter returns an iterator over all (key, value) pairs, in arbitrary order.
func (d Mapping) Iter() func(yield func(any, any) bool) {
	it := d.m.Iter()
	return func(yield func(any, any) bool) {
		for it.Next() {
			if !yield(it.Key(), it.Elem()) {
				return
			}
		}
	}
}

func (d Mapping) String() string { return d.sprintf("%v") }

func (d Mapping) GoString() string { return fmt.Sprintf("%T%s", d, d.sprintf("%#v")) }

func (d Mapping) sprintf(format string) string {
	type kv struct{ k, v string }
	items := make([]kv, 0, d.Len())
	d.Iter()(func(k, v any) bool {
		items = append(items, kv{fmt.Sprintf(format, k), fmt.Sprintf(format, v)})
		return true
	})
	sort.Slice(items, func(i, j int) bool { return items[i].k < items[j].k })

	s := "{"
	for i, it := range items {
		if i > 0 {
			s += ", "
		}
		s += it.k + ": " + it.v
	}
	return s + "}"
}

// pyset is the shared gomap-backed membership set used by both Set and
// FrozenSet.
type pyset struct {
	m *gomap.Map[any, struct{}]
}

func newPyset(size int) *pyset {
	return &pyset{m: gomap.NewHint[any, struct{}](size, equal, hash)}
}

func (s *pyset) Add(v any)     { s.m.Set(v, struct{}{}) }
func (s *pyset) Del(v any)     { s.m.Delete(v) }
func (s *pyset) Has(v any) bool { _, ok := s.m.Get(v); return ok }
func (s *pyset) Len() int       { return s.m.Len() }
func (s *pyset) Iter() func(yield func(any) bool) {
	it := s.m.Iter()
	return func(yield func(any) bool) {
		for it.Next() {
			if !yield(it.Key()) {
				return
			}
		}
	}
}

// Set is a mutable, unordered collection of unique, Python-equality-compared
// values.
type Set struct{ m *pyset }

// NewSet returns a new, empty Set.
func NewSet() Set { return NewSetSize(0) }

// NewSetSize returns a new, empty Set preallocated for size items.
func NewSetSize(size int) Set { return Set{m: newPyset(size)} }

// NewSetFrom returns a Set containing the given values.
func NewSetFrom(values ...any) Set {
	s := NewSetSize(len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s Set) Add(v any)      { s.m.Add(v) }
func (s Set) Del(v any)      { s.m.Del(v) }
func (s Set) Has(v any) bool { return s.m.Has(v) }
func (s Set) Len() int       { return s.m.Len() }
func (s Set) Iter() func(yield func(any) bool) { return s.m.Iter() }

// Freeze returns an immutable FrozenSet snapshot of s's current contents.
func (s Set) Freeze() FrozenSet {
	fs := NewFrozenSetSize(s.Len())
	s.Iter()(func(v any) bool {
		fs.m.Add(v)
		return true
	})
	return fs
}

// FrozenSet is an immutable, unordered collection of unique,
// Python-equality-compared values. Unlike Set it is hashable and may itself
// be a Mapping key or Set/FrozenSet member.
type FrozenSet struct{ m *pyset }

// NewFrozenSetSize returns a new, empty FrozenSet preallocated for size
// items; callers populate it via the underlying pyset before publishing it,
// since FrozenSet has no exported mutator (construct via NewFrozenSetFrom).
func NewFrozenSetSize(size int) FrozenSet { return FrozenSet{m: newPyset(size)} }

// NewFrozenSetFrom returns a FrozenSet containing the given values.
func NewFrozenSetFrom(values ...any) FrozenSet {
	fs := NewFrozenSetSize(len(values))
	for _, v := range values {
		fs.m.Add(v)
	}
	return fs
}

func (fs FrozenSet) Has(v any) bool { return fs.m.Has(v) }
func (fs FrozenSet) Len() int       { return fs.m.Len() }
func (fs FrozenSet) Iter() func(yield func(any) bool) { return fs.m.Iter() }
