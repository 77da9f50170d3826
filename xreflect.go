package korniszon
// Utilities that complement the standard reflect package: deepEqual (like
// reflect.DeepEqual, but Mapping/Set/FrozenSet-aware since each is built
// over its own hash seed) and deepCopy (the structural copy routine the
// record-struct default-value policy of §4.6 requires).

import "reflect"

// deepEqual is like reflect.DeepEqual but treats Mapping, Set and FrozenSet
// via their own Python-equality semantics instead of comparing their
// internal gomap state byte-for-byte (two Mappings built from the same
// key/value pairs have different internal hash seeds and bucket layouts).
//
// XXX only top-level Mapping/Set/FrozenSet is supported; one nested inside
// a plain slice or struct falls through to reflect.DeepEqual and so must
// have been constructed identically to compare equal. Tests that need deep
// nested comparison build their expected value with the exact same
// constructor calls in the exact same order to sidestep this.
func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case Mapping:
		bv, ok := b.(Mapping)
		return ok && eqMappingMapping(av, bv)
	case Set:
		bv, ok := b.(Set)
		return ok && eqSetSet(av.m, bv.m)
	case FrozenSet:
		bv, ok := b.(FrozenSet)
		return ok && eqSetSet(av.m, bv.m)
	}
	return reflect.DeepEqual(a, b)
}

// deepCopy performs a structural copy over the value domain's supported
// kinds, used to instantiate a "deep-copy-mutable-content" default field
// (§4.6). It does not follow shared identity: a deep-copied default never
// aliases the descriptor's stored default instance or any of its nested
// containers.
func deepCopy(v any) any {
	switch x := v.(type) {
	case None, bool, int64, float64, string, complex128:
		return x
	case Bytes:
		out := make(Bytes, len(x))
		copy(out, x)
		return out
	case ByteArray:
		out := make(ByteArray, len(x))
		copy(out, x)
		return out
	case Tuple:
		out := make(Tuple, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case Mapping:
		out := NewMappingSize(x.Len())
		x.Iter()(func(k, v any) bool {
			out.Set(deepCopy(k), deepCopy(v))
			return true
		})
		return out
	case Set:
		out := NewSetSize(x.Len())
		x.Iter()(func(e any) bool {
			out.Add(deepCopy(e))
			return true
		})
		return out
	case FrozenSet:
		out := newPyset(x.Len())
		x.Iter()(func(e any) bool {
			out.Add(deepCopy(e))
			return true
		})
		return FrozenSet{m: out}
	default:
		// structs (record structs), PickleBuffer and anything else: returned
		// as is, with no copy made.
		return v
	}
}
