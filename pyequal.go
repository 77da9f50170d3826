package korniszon
// Python-style cross-type equality and hashing, shared by Mapping, Set and
// FrozenSet so that e.g. int(1), float64(1.0) and a *big.Int holding 1 are
// interchangeable as map/set keys, exactly as they are in Python.
//
// Adapted from the teacher package's dict.go: this is the same equal/hash
// pair, generalized to also cover Set/FrozenSet membership and with the
// Python-2-only ByteString cross-equality dropped (this module's value
// domain has no ByteString kind).

import (
	"encoding/binary"
	"fmt"
	"hash/maphash"
	"math"
	"math/big"
	"reflect"
)

type kind uint

const (
	kBool kind = iota
	kInt
	kUint
	kFloat
	kComplex
	kBigInt

	kSlice
	kMap
	kStruct
	kPointer
	kOther
)

func kindOf(x any) kind {
	r := reflect.ValueOf(x)

	switch r.Kind() {
	case reflect.Bool:
		return kBool
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return kInt
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return kUint
	case reflect.Float64, reflect.Float32:
		return kFloat
	case reflect.Complex128, reflect.Complex64:
		return kComplex
	case reflect.Slice, reflect.Array:
		return kSlice
	case reflect.Map:
		return kMap
	case reflect.Struct:
		return kStruct
	}

	if _, ok := x.(*big.Int); ok {
		return kBigInt
	}

	if r.Kind() == reflect.Pointer {
		return kPointer
	}

	return kOther
}

// equal implements equality matching what Python would return for a == b:
// numeric kinds compare across Go types (bool/int/uint/float/complex/big.Int
// numeric equality), strings compare only to strings, Bytes only to Bytes,
// slices/tuples/structs/maps compare structurally using equal recursively.
func equal(xa, xb any) bool {
	switch a := xa.(type) {
	case string:
		b, ok := xb.(string)
		return ok && a == b
	case Bytes:
		b, ok := xb.(Bytes)
		return ok && string(a) == string(b)
	case ByteArray:
		b, ok := xb.(ByteArray)
		return ok && string(a) == string(b)
	case None:
		_, ok := xb.(None)
		return ok
	}

	a := reflect.ValueOf(xa)
	b := reflect.ValueOf(xb)

	ak := kindOf(xa)
	bk := kindOf(xb)

	if ak > bk {
		a, b = b, a
		ak, bk = bk, ak
		xa, xb = xb, xa
	}

	handled := true
	switch ak {
	default:
		handled = false

	case kBool:
		abint := bint(a.Bool())
		switch bk {
		case kBool:
			return eqIntInt(abint, bint(b.Bool()))
		case kInt:
			return eqIntInt(abint, b.Int())
		case kUint:
			return eqIntUint(abint, b.Uint())
		case kFloat:
			return eqIntFloat(abint, b.Float())
		case kComplex:
			return eqIntComplex(abint, b.Complex())
		case kBigInt:
			return eqIntBigInt(abint, xb.(*big.Int))
		}

	case kInt:
		aint := a.Int()
		switch bk {
		case kInt:
			return eqIntInt(aint, b.Int())
		case kUint:
			return eqIntUint(aint, b.Uint())
		case kFloat:
			return eqIntFloat(aint, b.Float())
		case kComplex:
			return eqIntComplex(aint, b.Complex())
		case kBigInt:
			return eqIntBigInt(aint, xb.(*big.Int))
		}

	case kUint:
		auint := a.Uint()
		switch bk {
		case kUint:
			return eqUintUint(auint, b.Uint())
		case kFloat:
			return eqUintFloat(auint, b.Float())
		case kComplex:
			return eqUintComplex(auint, b.Complex())
		case kBigInt:
			return eqUintBigInt(auint, xb.(*big.Int))
		}

	case kFloat:
		afloat := a.Float()
		switch bk {
		case kFloat:
			return eqFloatFloat(afloat, b.Float())
		case kComplex:
			return eqFloatComplex(afloat, b.Complex())
		case kBigInt:
			return eqFloatBigInt(afloat, xb.(*big.Int))
		}

	case kComplex:
		acomplex := a.Complex()
		switch bk {
		case kComplex:
			return eqComplexComplex(acomplex, b.Complex())
		case kBigInt:
			return eqComplexBigInt(acomplex, xb.(*big.Int))
		}

	case kBigInt:
		switch bk {
		case kBigInt:
			return eqBigIntBigInt(xa.(*big.Int), xb.(*big.Int))
		}

	case kSlice:
		switch bk {
		case kSlice:
			return eqSliceSlice(a, b)
		}

	case kMap:
		switch bk {
		case kMap:
			return eqMapMap(a, b)
		}
	}

	if handled {
		return false
	}

	switch a := xa.(type) {
	case Mapping:
		b, ok := xb.(Mapping)
		return ok && eqMappingMapping(a, b)
	case Set:
		b, ok := xb.(Set)
		return ok && eqSetSet(a.m, b.m)
	case FrozenSet:
		b, ok := xb.(FrozenSet)
		return ok && eqSetSet(a.m, b.m)
	}

	switch ak {
	case kStruct:
		switch bk {
		case kStruct:
			return eqStructStruct(a, b)
		}
	}

	return xa == xb
}

func eqIntInt(a, b int64) bool         { return a == b }
func eqIntFloat(a int64, b float64) bool { return float64(a) == b }
func eqIntComplex(a int64, b complex128) bool { return complex(float64(a), 0) == b }

func eqUintUint(a, b uint64) bool          { return a == b }
func eqUintFloat(a uint64, b float64) bool { return float64(a) == b }
func eqUintComplex(a uint64, b complex128) bool { return complex(float64(a), 0) == b }

func eqFloatFloat(a, b float64) bool          { return a == b }
func eqFloatComplex(a float64, b complex128) bool { return complex(a, 0) == b }

func eqComplexComplex(a, b complex128) bool { return a == b }

func eqIntUint(a int64, b uint64) bool {
	if a < 0 {
		return false
	}
	return uint64(a) == b
}

func eqIntBigInt(a int64, b *big.Int) bool {
	return b.IsInt64() && a == b.Int64()
}

func eqUintBigInt(a uint64, b *big.Int) bool {
	return b.IsUint64() && a == b.Uint64()
}

func eqFloatBigInt(a float64, b *big.Int) bool {
	bf, acc := bigIntToFloat64(b)
	return acc == big.Exact && a == bf
}

func eqComplexBigInt(a complex128, b *big.Int) bool {
	if imag(a) != 0 {
		return false
	}
	return eqFloatBigInt(real(a), b)
}

func eqBigIntBigInt(a, b *big.Int) bool { return a.Cmp(b) == 0 }

func eqSliceSlice(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !equal(a.Index(i).Interface(), b.Index(i).Interface()) {
			return false
		}
	}
	return true
}

func eqStructStruct(a, b reflect.Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	typ := a.Type()
	for i := 0; i < typ.NumField(); i++ {
		af, bf := fieldInterface(a, i), fieldInterface(b, i)
		if !equal(af, bf) {
			return false
		}
	}
	return true
}

// fieldInterface reads struct field i as an any, working around the
// unexported-field restriction the same way the teacher's dict.go does.
func fieldInterface(v reflect.Value, i int) any {
	f := v.Field(i)
	ftyp := v.Type().Field(i)
	if ftyp.IsExported() {
		return f.Interface()
	}
	if !f.CanAddr() {
		v2 := reflect.New(v.Type()).Elem()
		v2.Set(v)
		f = v2.Field(i)
	}
	return reflect.NewAt(ftyp.Type, f.Addr().UnsafePointer()).Elem().Interface()
}

func eqMapMap(a, b reflect.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	bKeyType := b.Type().Key()
	it := a.MapRange()
	for it.Next() {
		k := reflect.ValueOf(it.Key().Interface())
		if !k.Type().AssignableTo(bKeyType) {
			return false
		}
		bv := b.MapIndex(k)
		if !bv.IsValid() || !equal(it.Value().Interface(), bv.Interface()) {
			return false
		}
	}
	return true
}

func eqMappingMapping(a, b Mapping) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Iter()(func(k, v any) bool {
		bv, ok := b.Get_(k)
		if !ok || !equal(v, bv) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

func eqSetSet(a, b *pyset) bool {
	if a.Len() != b.Len() {
		return false
	}
	eq := true
	a.Iter()(func(v any) bool {
		if !b.Has(v) {
			eq = false
			return false
		}
		return true
	})
	return eq
}

// hash returns a hash of x consistent with equal: equal(a,b) implies
// hash(a) == hash(b). Panics with "unhashable type" for kinds that cannot
// be a Mapping/Set key or member (slices, lists, dicts, sets themselves).
func hash(seed maphash.Seed, x any) uint64 {
	switch v := x.(type) {
	case string:
		return maphash.String(seed, v)
	case Bytes:
		return maphash.String(seed, string(v))
	case None:
		var h maphash.Hash
		h.SetSeed(seed)
		h.WriteString("none")
		return h.Sum64()
	case Mapping, Set, *listBox:
		panic(fmt.Sprintf("korniszon: unhashable type: %T", x))
	}

	var h maphash.Hash
	h.SetSeed(seed)

	hashUint := func(u uint64) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], u)
		h.Write(b[:])
	}
	hashInt := func(i int64) { hashUint(uint64(i)) }
	hashFloat := func(f float64) {
		i := int64(f)
		if float64(i) == f {
			hashInt(i)
		} else {
			hashUint(math.Float64bits(f))
		}
	}

	r := reflect.ValueOf(x)
	k := kindOf(x)

	switch k {
	case kBool:
		hashInt(bint(r.Bool()))
		return h.Sum64()
	case kInt:
		hashInt(r.Int())
		return h.Sum64()
	case kUint:
		hashUint(r.Uint())
		return h.Sum64()
	case kFloat:
		hashFloat(r.Float())
		return h.Sum64()
	case kComplex:
		c := r.Complex()
		hashFloat(real(c))
		if imag(c) != 0 {
			hashFloat(imag(c))
		}
		return h.Sum64()
	case kBigInt:
		b := x.(*big.Int)
		switch {
		case b.IsInt64():
			hashInt(b.Int64())
		case b.IsUint64():
			hashUint(b.Uint64())
		default:
			f, acc := bigIntToFloat64(b)
			if acc == big.Exact {
				hashFloat(f)
			} else {
				h.WriteString("bigint")
				h.Write(b.Bytes())
			}
		}
		return h.Sum64()
	case kPointer:
		hashUint(uint64(r.Elem().UnsafeAddr()))
		return h.Sum64()
	}

	switch v := x.(type) {
	case Tuple:
		h.WriteString("tuple")
		for _, item := range v {
			hashUint(hash(seed, item))
		}
		return h.Sum64()
	case FrozenSet:
		h.WriteString("frozenset")
		var acc uint64
		v.m.Iter()(func(e any) bool {
			acc ^= hash(seed, e)
			return true
		})
		hashUint(acc)
		return h.Sum64()
	}

	if k == kStruct {
		typ := r.Type()
		h.WriteString(typ.Name())
		for i := 0; i < typ.NumField(); i++ {
			hashUint(hash(seed, fieldInterface(r, i)))
		}
		return h.Sum64()
	}

	panic(fmt.Sprintf("korniszon: unhashable type: %T", x))
}

// bigIntToFloat64 converts b to float64, reporting whether the conversion
// was exact (mirrors the teacher's undeclared bigInt_Float64 helper, which
// was referenced but never defined in the retrieved teacher sources).
func bigIntToFloat64(b *big.Int) (float64, big.Accuracy) {
	f := new(big.Float).SetInt(b)
	v, acc := f.Float64()
	return v, acc
}

func bint(x bool) int64 {
	if x {
		return 1
	}
	return 0
}
