package korniszon
// Encoder: the opcode-level writer half of the codec engine (§4.2). It walks
// a value of the supported domain (§3) and emits the generic pickle
// protocol-5 binary opcode stream a conforming decoder — this package's or
// the reference unpickler's — can read back.
//
// Grounded on the teacher package's encode.go: the Encoder/EncoderConfig
// shape, the emit/emitb helper split and the per-kind encodeXxx method
// naming all come from there, generalized from og-rek's reflect-driven
// dispatch over arbitrary Go values to a closed type switch over this
// package's value domain, and extended with the memo table, refcount
// pre-pass and out-of-band buffer handling og-rek's encoder never needed.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
)

// maxEncodeDepth bounds recursive descent so that a value with no path to
// termination (a record struct directly referencing itself with no
// intervening mutable container to break the cycle, see SPEC_FULL.md §4.6)
// fails with RecursionError instead of exhausting the goroutine stack.
const maxEncodeDepth = 5000

// complexTypecode is the reserved, non-registrable struct typecode used to
// represent complex128 values over BUILDSTRUCT, since the generic dialect
// has no native complex opcode and this module does not support the
// GLOBAL/REDUCE machinery CPython's pickle uses for it (§1 Non-goals).
const complexTypecode = 0

// EncoderConfig tunes an Encoder.
type EncoderConfig struct {
	// Registry resolves record struct and enum Go types to wire typecodes.
	// A nil Registry is valid as long as the encoded value never contains a
	// record struct or enum member.
	Registry *Registry

	// BufferCallback, if set, is invoked with each PickleBuffer value
	// encountered in encounter order, and the buffer is emitted as an
	// out-of-band NEXT_BUFFER/READONLY_BUFFER marker instead of being
	// inlined. Leave nil to always encode buffers in-band.
	BufferCallback BufferCallback
}

// Encoder writes the pickle encoding of Go values to an output stream.
type Encoder struct {
	w        *bytes.Buffer // set per-Encode call; Encoder itself is not safe for concurrent use
	dst      io.Writer
	registry *Registry
	bufferCB BufferCallback

	memo  *memoTable
	refs  *refcounts
	depth int
}

// NewEncoder returns an Encoder with no registry and no buffer callback.
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderWithConfig(w, &EncoderConfig{})
}

// NewEncoderWithConfig is like NewEncoder but allows specifying Registry and
// BufferCallback.
func NewEncoderWithConfig(w io.Writer, config *EncoderConfig) *Encoder {
	if config == nil {
		config = &EncoderConfig{}
	}
	reg := config.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Encoder{dst: w, registry: reg, bufferCB: config.BufferCallback}
}

// Encode writes the pickle encoding of v.
func (e *Encoder) Encode(v any) error {
	e.memo = newMemoTable()
	e.refs = countRefs(v, e.registry)
	e.depth = 0

	var body bytes.Buffer
	e.w = &body
	if err := e.encodeAny(v); err != nil {
		return err
	}
	if err := e.emitOp(opStop); err != nil {
		return err
	}

	if _, err := e.dst.Write([]byte{byte(opProto), byte(highestProtocol)}); err != nil {
		return err
	}
	return e.writeFramed(body.Bytes())
}

// frameSizeMin mirrors the generic pickler's own threshold: bodies shorter
// than this are written unframed, since a FRAME header (9 bytes) would cost
// more than it saves.
const frameSizeMin = 4

func (e *Encoder) writeFramed(body []byte) error {
	if len(body) < frameSizeMin {
		_, err := e.dst.Write(body)
		return err
	}
	var hdr [9]byte
	hdr[0] = byte(opFrame)
	binary.LittleEndian.PutUint64(hdr[1:], uint64(len(body)))
	if _, err := e.dst.Write(hdr[:]); err != nil {
		return err
	}
	_, err := e.dst.Write(body)
	return err
}

func (e *Encoder) emit(b ...byte) error {
	_, err := e.w.Write(b)
	return err
}

func (e *Encoder) emitOp(op opcode) error { return e.emit(byte(op)) }

func (e *Encoder) emitString(s string) error {
	_, err := e.w.WriteString(s)
	return err
}

func (e *Encoder) emitGet(idx int) error {
	if idx >= 0 && idx < 256 {
		return e.emit(byte(opBinGet), byte(idx))
	}
	var b [5]byte
	b[0] = byte(opLongBinGet)
	binary.LittleEndian.PutUint32(b[1:], uint32(idx))
	return e.emit(b[:]...)
}

// emitMemoize records id at the next memo index and writes the MEMOIZE
// opcode. Protocol 4+'s MEMOIZE carries no operand: the index is implicit,
// the next one in sequence.
func (e *Encoder) emitMemoize(id ident) (int, error) {
	idx := e.memo.put(id)
	return idx, e.emitOp(opMemoize)
}

func (e *Encoder) encodeAny(v any) error {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxEncodeDepth {
		return &RecursionError{Msg: "maximum encode depth exceeded"}
	}

	id, shareable := identityOf(v)
	if shareable {
		if idx, ok := e.memo.lookup(id); ok {
			return e.emitGet(idx)
		}
	}

	switch x := v.(type) {
	case None:
		return e.emitOp(opNone)
	case bool:
		return e.encodeBool(x)
	case int64:
		return e.encodeInt(big.NewInt(x))
	case *big.Int:
		return e.encodeInt(x)
	case float64:
		return e.encodeFloat(x)
	case complex128:
		return e.encodeComplex(x)
	case string:
		return e.encodeUnicode(x)
	case Bytes:
		return e.encodeBytes(x, id, shareable)
	case ByteArray:
		return e.encodeByteArray(x, id, shareable)
	case PickleBuffer:
		return e.encodeBuffer(x)
	case Tuple:
		return e.encodeTuple(x, id, shareable)
	case []any:
		return e.encodeList(x, id, shareable)
	case Mapping:
		return e.encodeMapping(x, id, shareable)
	case Set:
		return e.encodeSet(x, id, shareable)
	case FrozenSet:
		return e.encodeFrozenSet(x, id, shareable)
	default:
		return e.encodeExtension(v, id, shareable)
	}
}

func (e *Encoder) encodeBool(b bool) error {
	if b {
		return e.emitOp(opNewTrue)
	}
	return e.emitOp(opNewFalse)
}

func (e *Encoder) encodeFloat(f float64) error {
	u := math.Float64bits(f)
	var b [9]byte
	b[0] = byte(opBinFloat)
	binary.BigEndian.PutUint64(b[1:], u)
	return e.emit(b[:]...)
}

// encodeInt implements CPython's save_long width selection exactly: the
// smallest of BININT1/BININT2/BININT/LONG1/LONG4 that can hold the value.
func (e *Encoder) encodeInt(x *big.Int) error {
	if x.IsInt64() {
		i := x.Int64()
		switch {
		case i >= 0 && i <= 0xff:
			return e.emit(byte(opBinInt1), byte(i))
		case i >= 0 && i <= 0xffff:
			return e.emit(byte(opBinInt2), byte(i), byte(i>>8))
		case i >= math.MinInt32 && i <= math.MaxInt32:
			var b [5]byte
			b[0] = byte(opBinInt)
			binary.LittleEndian.PutUint32(b[1:], uint32(int32(i)))
			return e.emit(b[:]...)
		}
	}

	encoded := encodeLongBytes(x)
	n := len(encoded)
	if n < 256 {
		if err := e.emit(byte(opLong1), byte(n)); err != nil {
			return err
		}
		return e.emit(encoded...)
	}
	var hdr [5]byte
	hdr[0] = byte(opLong4)
	binary.LittleEndian.PutUint32(hdr[1:], uint32(n))
	if err := e.emit(hdr[:]...); err != nil {
		return err
	}
	return e.emit(encoded...)
}

// encodeLongBytes implements CPython's encode_long: the minimal signed
// little-endian two's complement representation of x, empty for zero.
func encodeLongBytes(x *big.Int) []byte {
	if x.Sign() == 0 {
		return nil
	}
	nbytes := x.BitLen()/8 + 1
	be := make([]byte, nbytes)
	if x.Sign() > 0 {
		x.FillBytes(be)
	} else {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(nbytes*8))
		mod.Add(mod, x)
		mod.FillBytes(be)
	}
	le := make([]byte, nbytes)
	for i, bb := range be {
		le[nbytes-1-i] = bb
	}
	if x.Sign() < 0 && len(le) > 1 && le[len(le)-1] == 0xff && le[len(le)-2]&0x80 != 0 {
		le = le[:len(le)-1]
	}
	return le
}

// encodeComplex follows the same BUILDSTRUCT wire contract as a registered
// record struct (§4.2 steps 4-5): typecode first, then the field values as
// a real, MEMOIZE-eligible Tuple object — here the two-double tuple
// SPEC_FULL.md §9 describes complex128 as.
func (e *Encoder) encodeComplex(c complex128) error {
	if err := e.encodeInt(big.NewInt(complexTypecode)); err != nil {
		return err
	}
	if err := e.encodeAny(Tuple{real(c), imag(c)}); err != nil {
		return err
	}
	return e.emitOp(opBuildStruct)
}

func (e *Encoder) encodeUnicode(s string) error {
	l := len(s)
	switch {
	case l < 256:
		if err := e.emit(byte(opShortBinUnic), byte(l)); err != nil {
			return err
		}
	case l <= math.MaxUint32:
		var b [5]byte
		b[0] = byte(opBinUnicode)
		binary.LittleEndian.PutUint32(b[1:], uint32(l))
		if err := e.emit(b[:]...); err != nil {
			return err
		}
	default:
		var b [9]byte
		b[0] = byte(opBinUnicode8)
		binary.LittleEndian.PutUint64(b[1:], uint64(l))
		if err := e.emit(b[:]...); err != nil {
			return err
		}
	}
	return e.emitString(s)
}

func (e *Encoder) encodeBytes(x Bytes, id ident, shareable bool) error {
	l := len(x)
	switch {
	case l < 256:
		if err := e.emit(byte(opShortBinBytes), byte(l)); err != nil {
			return err
		}
	case l <= math.MaxUint32:
		var b [5]byte
		b[0] = byte(opBinBytes)
		binary.LittleEndian.PutUint32(b[1:], uint32(l))
		if err := e.emit(b[:]...); err != nil {
			return err
		}
	default:
		var b [9]byte
		b[0] = byte(opBinBytes8)
		binary.LittleEndian.PutUint64(b[1:], uint64(l))
		if err := e.emit(b[:]...); err != nil {
			return err
		}
	}
	if err := e.emit(x...); err != nil {
		return err
	}
	return e.maybeMemoize(id, shareable)
}

func (e *Encoder) encodeByteArray(x ByteArray, id ident, shareable bool) error {
	var b [9]byte
	b[0] = byte(opByteArray8)
	binary.LittleEndian.PutUint64(b[1:], uint64(len(x)))
	if err := e.emit(b[:]...); err != nil {
		return err
	}
	if err := e.emit(x...); err != nil {
		return err
	}
	return e.maybeMemoize(id, shareable)
}

func (e *Encoder) encodeBuffer(b PickleBuffer) error {
	if e.bufferCB != nil {
		e.bufferCB(b)
		if err := e.emitOp(opNextBuffer); err != nil {
			return err
		}
		if b.Readonly() {
			return e.emitOp(opReadonlyBuf)
		}
		return nil
	}

	switch u := b.Underlying().(type) {
	case Bytes:
		id, shareable := identityOf(u)
		return e.encodeBytes(u, id, shareable)
	case ByteArray:
		id, shareable := identityOf(u)
		return e.encodeByteArray(u, id, shareable)
	default:
		return &TypeError{Type: "PickleBuffer", Reason: "empty or unsupported underlying buffer"}
	}
}

// maybeMemoize emits MEMOIZE and records id in the memo table only when id
// is shareable and was reached more than once by the refcount pre-pass
// (§4.2 step 2, §9): an object with at most one reference can never be the
// target of a later GET, so memoizing it would only waste a MEMOIZE opcode
// and a dead memo slot.
func (e *Encoder) maybeMemoize(id ident, shareable bool) error {
	if !shareable || e.refs.get(id) <= 1 {
		return nil
	}
	_, err := e.emitMemoize(id)
	return err
}

// memoizeContainer is maybeMemoize for a list, dict or set: one with content
// is memoized regardless of its reference count (§4.2 step 2), since it may
// close a cycle through a tuple, frozenset or struct that is only memoized
// after its own contents have been encoded.
func (e *Encoder) memoizeContainer(id ident, shareable bool, n int) error {
	if !shareable || n == 0 {
		return e.maybeMemoize(id, shareable)
	}
	_, err := e.emitMemoize(id)
	return err
}

func (e *Encoder) encodeTuple(x Tuple, id ident, shareable bool) error {
	n := len(x)
	if n == 0 {
		return e.emitOp(opEmptyTuple)
	}

	if n <= 3 {
		for _, item := range x {
			if err := e.encodeAny(item); err != nil {
				return err
			}
		}
		return e.finishShortAggregate(id, shareable, n, tupleShortOp(n))
	}

	if err := e.emitOp(opMark); err != nil {
		return err
	}
	for _, item := range x {
		if err := e.encodeAny(item); err != nil {
			return err
		}
	}
	return e.finishMarkedAggregate(id, shareable, opTuple)
}

func tupleShortOp(n int) opcode {
	switch n {
	case 1:
		return opTuple1
	case 2:
		return opTuple2
	default:
		return opTuple3
	}
}

// finishShortAggregate implements the CPython save_tuple reentrant retry
// trick (§4.2, §9) for the TUPLE1/TUPLE2/TUPLE3 short forms: by the time
// n elements have been encoded, a nested encode of this exact identity
// (reached through an intervening early-memoized mutable container) may
// already have built and memoized it. If so, the elements just pushed are
// a redundant, discarded construction attempt: pop them and emit a GET to
// the real, nested-built copy instead. encodeStruct uses it too, with n=2
// (the typecode and the field tuple) and BUILDSTRUCT as buildOp.
func (e *Encoder) finishShortAggregate(id ident, shareable bool, n int, buildOp opcode) error {
	if shareable {
		if idx, ok := e.memo.lookup(id); ok {
			for i := 0; i < n; i++ {
				if err := e.emitOp(opPop); err != nil {
					return err
				}
			}
			return e.emitGet(idx)
		}
	}
	if err := e.emitOp(buildOp); err != nil {
		return err
	}
	return e.maybeMemoize(id, shareable)
}

// finishMarkedAggregate is finishShortAggregate's MARK-based counterpart,
// used by the general tuple form and FrozenSet: POP_MARK
// discards everything back to the mark in one step regardless of how many
// items were pushed above it.
func (e *Encoder) finishMarkedAggregate(id ident, shareable bool, buildOp opcode) error {
	if shareable {
		if idx, ok := e.memo.lookup(id); ok {
			if err := e.emitOp(opPopMark); err != nil {
				return err
			}
			return e.emitGet(idx)
		}
	}
	if err := e.emitOp(buildOp); err != nil {
		return err
	}
	return e.maybeMemoize(id, shareable)
}

func (e *Encoder) encodeFrozenSet(x FrozenSet, id ident, shareable bool) error {
	if err := e.emitOp(opMark); err != nil {
		return err
	}
	var elemErr error
	x.Iter()(func(v any) bool {
		if err := e.encodeAny(v); err != nil {
			elemErr = err
			return false
		}
		return true
	})
	if elemErr != nil {
		return elemErr
	}
	return e.finishMarkedAggregate(id, shareable, opFrozenSet)
}

func (e *Encoder) encodeList(x []any, id ident, shareable bool) error {
	if err := e.emitOp(opEmptyList); err != nil {
		return err
	}
	if err := e.memoizeContainer(id, shareable, len(x)); err != nil {
		return err
	}
	return e.batchAppends(x)
}

func (e *Encoder) batchAppends(items []any) error {
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		if len(batch) == 1 {
			if err := e.encodeAny(batch[0]); err != nil {
				return err
			}
			if err := e.emitOp(opAppend); err != nil {
				return err
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}
		if err := e.emitOp(opMark); err != nil {
			return err
		}
		for _, item := range batch {
			if err := e.encodeAny(item); err != nil {
				return err
			}
		}
		if err := e.emitOp(opAppends); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeMapping(x Mapping, id ident, shareable bool) error {
	if err := e.emitOp(opEmptyDict); err != nil {
		return err
	}
	if err := e.memoizeContainer(id, shareable, x.Len()); err != nil {
		return err
	}

	type pair struct{ k, v any }
	pairs := make([]pair, 0, x.Len())
	x.Iter()(func(k, v any) bool {
		pairs = append(pairs, pair{k, v})
		return true
	})

	for start := 0; start < len(pairs); start += batchSize {
		end := start + batchSize
		if end > len(pairs) {
			end = len(pairs)
		}
		batch := pairs[start:end]
		if len(batch) == 1 {
			if err := e.encodeAny(batch[0].k); err != nil {
				return err
			}
			if err := e.encodeAny(batch[0].v); err != nil {
				return err
			}
			if err := e.emitOp(opSetItem); err != nil {
				return err
			}
			continue
		}
		if len(batch) == 0 {
			continue
		}
		if err := e.emitOp(opMark); err != nil {
			return err
		}
		for _, p := range batch {
			if err := e.encodeAny(p.k); err != nil {
				return err
			}
			if err := e.encodeAny(p.v); err != nil {
				return err
			}
		}
		if err := e.emitOp(opSetItems); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) encodeSet(x Set, id ident, shareable bool) error {
	if err := e.emitOp(opEmptySet); err != nil {
		return err
	}
	if err := e.memoizeContainer(id, shareable, x.Len()); err != nil {
		return err
	}

	var items []any
	x.Iter()(func(v any) bool {
		items = append(items, v)
		return true
	})

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		if len(batch) == 0 {
			continue
		}
		if err := e.emitOp(opMark); err != nil {
			return err
		}
		for _, item := range batch {
			if err := e.encodeAny(item); err != nil {
				return err
			}
		}
		if err := e.emitOp(opAddItems); err != nil {
			return err
		}
	}
	return nil
}

// encodeExtension dispatches a value of none of the built-in kinds to the
// registry as either a record struct (via a Go struct pointer) or an enum
// member (via a named int/string type).
func (e *Encoder) encodeExtension(v any, id ident, shareable bool) error {
	if d, code, ok := e.registry.structByType(v); ok {
		return e.encodeStruct(v, d, code, id, shareable)
	}
	if d, code, ok := e.registry.enumByType(v); ok {
		return e.encodeEnum(v, d, code)
	}
	return &TypeError{Type: fmt.Sprintf("%T", v)}
}

// encodeStruct pushes the typecode, then the field values as a real,
// MEMOIZE-eligible Tuple object (§4.2 steps 4-5), then BUILDSTRUCT. The
// field tuple is built fresh on every call and so never matches an earlier
// identity in e.refs — it rides the same opEmptyTuple/opTupleN/opMark+opTuple
// framing as any other tuple, but in practice is never itself memoized.
func (e *Encoder) encodeStruct(v any, d *StructDescriptor, code uint32, id ident, shareable bool) error {
	if err := e.encodeInt(new(big.Int).SetUint64(uint64(code))); err != nil {
		return err
	}
	if err := e.encodeAny(Tuple(d.fieldValues(v))); err != nil {
		return err
	}
	return e.finishShortAggregate(id, shareable, 2, opBuildStruct)
}

// encodeEnum pushes the typecode, then the member value, then BUILDENUM.
func (e *Encoder) encodeEnum(v any, d *EnumDescriptor, code uint32) error {
	if err := e.encodeInt(new(big.Int).SetUint64(uint64(code))); err != nil {
		return err
	}
	if err := e.encodeAny(d.valueOf(v)); err != nil {
		return err
	}
	return e.emitOp(opBuildEnum)
}
