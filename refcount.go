package korniszon
// The identity reference-counting pre-pass recommended by SPEC_FULL.md §9:
// Go exposes no reference counter, so the "refcount ≤ 1 objects are not
// memoized" optimization (spec.md §4.2 step 2, §9) is implemented by
// walking the value graph once before encoding, counting how many times
// each shareable identity is reached. The same walk doubles as cycle
// detection, since a container reached while still being visited higher up
// the same walk is, by definition, referenced at least twice.

import "reflect"

// refcounts maps an object identity to how many times the pre-pass walk
// reached it.
type refcounts struct {
	counts map[ident]int
}

type ident struct {
	typ reflect.Type
	ptr uintptr
}

// identityOf returns the identity of v and whether v is a kind that can be
// shared/memoized at all. Scalars (bool, int64, float64, string, complex128,
// None) have no stable Go identity distinct from their content and are
// never memoized by identity — only non-nil Bytes/ByteArray (by backing
// array), containers, Mapping/Set/FrozenSet, Tuple, struct pointers and
// non-empty PickleBuffer-wrapped buffers are.
func identityOf(v any) (ident, bool) {
	switch x := v.(type) {
	case Bytes:
		if x == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x), reflect.ValueOf([]byte(x)).Pointer()}, true
	case ByteArray:
		if x == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x), reflect.ValueOf([]byte(x)).Pointer()}, true
	case Mapping:
		if x.m == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x.m), reflect.ValueOf(x.m).Pointer()}, true
	case Set:
		if x.m == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x.m), reflect.ValueOf(x.m).Pointer()}, true
	case FrozenSet:
		if x.m == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x.m), reflect.ValueOf(x.m).Pointer()}, true
	case Tuple:
		if x == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x), reflect.ValueOf([]any(x)).Pointer()}, true
	case []any:
		if x == nil {
			return ident{}, false
		}
		return ident{reflect.TypeOf(x), reflect.ValueOf(x).Pointer()}, true
	case PickleBuffer:
		rv := reflect.ValueOf(x.underlying)
		if rv.Len() == 0 {
			return ident{}, false
		}
		return ident{rv.Type(), rv.Pointer()}, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ident{}, false
		}
		return ident{rv.Type(), rv.Pointer()}, true
	}
	return ident{}, false
}

// countRefs walks v and everything reachable from it, incrementing the
// identity's count on every visit. It does not recurse into an identity it
// has already started visiting further up the current path, so a cycle
// contributes exactly one extra count to the back-referenced identity
// rather than looping forever.
func countRefs(v any, reg *Registry) *refcounts {
	rc := &refcounts{counts: make(map[ident]int)}
	visiting := make(map[ident]bool)
	rc.walk(v, reg, visiting)
	return rc
}

func (rc *refcounts) walk(v any, reg *Registry, visiting map[ident]bool) {
	id, ok := identityOf(v)
	if ok {
		rc.counts[id]++
		if visiting[id] {
			return
		}
		visiting[id] = true
		defer delete(visiting, id)
	}

	switch x := v.(type) {
	case Tuple:
		for _, e := range x {
			rc.walk(e, reg, visiting)
		}
	case []any:
		for _, e := range x {
			rc.walk(e, reg, visiting)
		}
	case Mapping:
		x.Iter()(func(k, val any) bool {
			rc.walk(k, reg, visiting)
			rc.walk(val, reg, visiting)
			return true
		})
	case Set:
		x.Iter()(func(e any) bool {
			rc.walk(e, reg, visiting)
			return true
		})
	case FrozenSet:
		x.Iter()(func(e any) bool {
			rc.walk(e, reg, visiting)
			return true
		})
	default:
		if reg != nil {
			if fields, ok := reg.structFieldValues(v); ok {
				for _, f := range fields {
					rc.walk(f, reg, visiting)
				}
			}
		}
	}
}

// get returns how many times identity id was reached by the pre-pass (the
// root value's own visit counts as one); 0 for an identity never visited,
// such as a value built after the pre-pass or a non-shareable scalar kind
// not tracked at all.
func (rc *refcounts) get(id ident) int { return rc.counts[id] }
