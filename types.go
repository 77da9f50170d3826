package korniszon

// None represents the absence of a value (Python's None), decoded from and
// encoded to the NONE opcode. It is a zero-size singleton; compare with
// ==, not reflect.DeepEqual-against-nil.
type None struct{}

// Tuple is an ordered immutable sequence. Immutability is a convention, not
// enforced by the Go type system: callers should not mutate a Tuple after
// handing it to Encode.
type Tuple []any

// Bytes is an immutable byte string, distinguished on the wire from
// [ByteArray] (a mutable byte buffer) and from Go's native string (a
// Unicode text string).
type Bytes []byte

// ByteArray is a mutable byte buffer, encoded with BYTEARRAY8 regardless of
// length (the generic dialect has no shorter bytearray form).
type ByteArray []byte

// PickleBuffer is an opaque handle over a [Bytes] or [ByteArray] value, used
// for the out-of-band buffer protocol (§4.1, §9). Two PickleBuffers are
// equal if their underlying byte content is equal, independent of
// mutability.
type PickleBuffer struct {
	underlying any // Bytes or ByteArray
}

// NewPickleBuffer wraps v, which must be a [Bytes] or [ByteArray] value.
// It panics for any other type: constructing a PickleBuffer over an
// unsupported kind is a programmer error, not a runtime condition callers
// are expected to recover from.
func NewPickleBuffer(v any) PickleBuffer {
	switch v.(type) {
	case Bytes, ByteArray:
		return PickleBuffer{underlying: v}
	default:
		panic("korniszon: PickleBuffer requires Bytes or ByteArray")
	}
}

// Underlying returns the wrapped Bytes or ByteArray value.
func (b PickleBuffer) Underlying() any { return b.underlying }

// Readonly reports whether the wrapped value is immutable ([Bytes]).
func (b PickleBuffer) Readonly() bool {
	_, ok := b.underlying.(Bytes)
	return ok
}

func (b PickleBuffer) bytes() []byte {
	switch u := b.underlying.(type) {
	case Bytes:
		return []byte(u)
	case ByteArray:
		return []byte(u)
	default:
		return nil
	}
}

// Equal compares two PickleBuffers by byte content, ignoring mutability.
func (b PickleBuffer) Equal(other PickleBuffer) bool {
	ba, bb := b.bytes(), other.bytes()
	if len(ba) != len(bb) {
		return false
	}
	for i := range ba {
		if ba[i] != bb[i] {
			return false
		}
	}
	return true
}
