package korniszon
// Decoder: the opcode-level stack machine that reads a pickle protocol-5
// binary stream back into the value domain (§4.3). It operates over a
// fully materialized byte slice plus a caller-supplied out-of-band buffer
// list rather than an io.Reader — this module has no stream interface
// (§1 Non-goals), unlike the teacher package's io.Reader-based Decoder.
//
// Grounded on ogorek.go: the object-stack/mark-stack/memo-vector shape and
// the opcode dispatch loop follow it directly, narrowed from its full
// legacy opcode table (protocols 0-2, GLOBAL/REDUCE, persistent ids) down
// to the closed protocol-5 binary set this module supports, and extended
// with BUILDSTRUCT/BUILDENUM and out-of-band buffer consumption.

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/aristanetworks/gomap"
)

// listBox is the decode-time representation of an in-progress []any list.
// A plain Go slice header is unstable across growth (append may reallocate
// its backing array), which would break identity for a list referenced by
// MEMOIZE before it is fully populated — exactly the case a self-
// referential list (§8: "list L=[L]") requires. listBox gives such a list
// a stable pointer identity for as long as it is still being built;
// finalizeListBoxes resolves every remaining listBox in the decoded result
// back to a plain []any once decoding completes, aliasing a box's own
// backing array into itself wherever it is self-referential so the public
// result is an ordinary (if cyclic) []any value with no listBox left in it.
type listBox struct {
	items []any
}

// DecoderConfig tunes a Decoder.
type DecoderConfig struct {
	// Registry resolves wire typecodes to record struct and enum
	// descriptors. A nil Registry is valid as long as the stream never
	// contains a BUILDSTRUCT (other than the reserved complex typecode) or
	// BUILDENUM opcode.
	Registry *Registry

	// Buffers supplies the out-of-band buffers NEXT_BUFFER consumes, in the
	// order a matching Encoder's BufferCallback collected them.
	Buffers []PickleBuffer
}

// Decoder reads one pickle protocol-5 binary value from a byte slice.
type Decoder struct {
	data []byte
	pos  int

	registry *Registry
	buffers  *bufferQueue

	stack []any
	marks []int
	memo  []any
}

// NewDecoder returns a Decoder over data with no registry and no
// out-of-band buffers.
func NewDecoder(data []byte) *Decoder {
	return NewDecoderWithConfig(data, &DecoderConfig{})
}

// NewDecoderWithConfig is like NewDecoder but allows specifying Registry and
// Buffers.
func NewDecoderWithConfig(data []byte, config *DecoderConfig) *Decoder {
	if config == nil {
		config = &DecoderConfig{}
	}
	reg := config.Registry
	if reg == nil {
		reg = NewRegistry()
	}
	return &Decoder{data: data, registry: reg, buffers: newBufferQueue(config.Buffers)}
}

// Decode reads and returns the single value encoded in the Decoder's
// stream. A panic raised while applying a malformed stream (an unhashable
// set member or dict key, a field value of the wrong Go type) is returned
// as a *DecodingError.
func (d *Decoder) Decode() (result any, rerr error) {
	defer func() {
		if r := recover(); r != nil {
			result, rerr = nil, decodingErrorf("malformed stream: %v", r)
		}
	}()
	for {
		op, err := d.readOpcode()
		if err != nil {
			return nil, err
		}

		switch op {
		case opStop:
			return d.finish()
		case opProto:
			if _, err := d.readByte(); err != nil {
				return nil, err
			}
		case opFrame:
			if _, err := d.readN(8); err != nil {
				return nil, err
			}
		case opMark:
			d.marks = append(d.marks, len(d.stack))
		case opPop:
			if len(d.stack) == 0 {
				return nil, decodingErrorf("POP on empty stack")
			}
			d.stack = d.stack[:len(d.stack)-1]
		case opPopMark:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			d.stack = d.stack[:mark]
		case opNone:
			d.push(None{})
		case opNewTrue:
			d.push(true)
		case opNewFalse:
			d.push(false)
		case opBinInt1:
			b, err := d.readByte()
			if err != nil {
				return nil, err
			}
			d.push(int64(b))
		case opBinInt2:
			b, err := d.readN(2)
			if err != nil {
				return nil, err
			}
			d.push(int64(binary.LittleEndian.Uint16(b)))
		case opBinInt:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			d.push(int64(int32(binary.LittleEndian.Uint32(b))))
		case opLong1:
			n, err := d.readByte()
			if err != nil {
				return nil, err
			}
			b, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(decodeLong(b))
		case opLong4:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			n := int32(binary.LittleEndian.Uint32(b))
			if n < 0 {
				return nil, decodingErrorf("LONG4 with negative length %d", n)
			}
			body, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(decodeLong(body))
		case opBinFloat:
			b, err := d.readN(8)
			if err != nil {
				return nil, err
			}
			d.push(math.Float64frombits(binary.BigEndian.Uint64(b)))
		case opShortBinUnic:
			n, err := d.readByte()
			if err != nil {
				return nil, err
			}
			s, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(string(s))
		case opBinUnicode:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint32(b)
			s, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(string(s))
		case opBinUnicode8:
			b, err := d.readN(8)
			if err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint64(b)
			s, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(string(s))
		case opShortBinBytes:
			n, err := d.readByte()
			if err != nil {
				return nil, err
			}
			b, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(Bytes(cloneBytes(b)))
		case opBinBytes:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint32(b)
			body, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(Bytes(cloneBytes(body)))
		case opBinBytes8:
			b, err := d.readN(8)
			if err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint64(b)
			body, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(Bytes(cloneBytes(body)))
		case opByteArray8:
			b, err := d.readN(8)
			if err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint64(b)
			body, err := d.readN(int(n))
			if err != nil {
				return nil, err
			}
			d.push(ByteArray(cloneBytes(body)))
		case opEmptyTuple:
			d.push(Tuple{})
		case opTuple1, opTuple2, opTuple3:
			n := 1
			if op == opTuple2 {
				n = 2
			} else if op == opTuple3 {
				n = 3
			}
			if len(d.stack) < n {
				return nil, decodingErrorf("%s on stack with %d items", op, len(d.stack))
			}
			items := append(Tuple{}, d.stack[len(d.stack)-n:]...)
			d.stack = d.stack[:len(d.stack)-n]
			d.push(items)
		case opTuple:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			items := append(Tuple{}, d.stack[mark:]...)
			d.stack = d.stack[:mark]
			d.push(items)
		case opFrozenSet:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			items := d.stack[mark:]
			fs := NewFrozenSetFrom(items...)
			d.stack = d.stack[:mark]
			d.push(fs)
		case opEmptyList:
			d.push(&listBox{items: []any{}})
		case opAppend:
			val, err := d.pop()
			if err != nil {
				return nil, err
			}
			box, err := d.peekListBox()
			if err != nil {
				return nil, err
			}
			box.items = append(box.items, val)
		case opAppends:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			items := append([]any{}, d.stack[mark:]...)
			d.stack = d.stack[:mark]
			box, err := d.peekListBox()
			if err != nil {
				return nil, err
			}
			box.items = append(box.items, items...)
		case opEmptyDict:
			d.push(NewMapping())
		case opSetItem:
			val, err := d.pop()
			if err != nil {
				return nil, err
			}
			key, err := d.pop()
			if err != nil {
				return nil, err
			}
			m, err := d.peekMapping()
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		case opSetItems:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			items := append([]any{}, d.stack[mark:]...)
			d.stack = d.stack[:mark]
			if len(items)%2 != 0 {
				return nil, decodingErrorf("SETITEMS with odd item count %d", len(items))
			}
			m, err := d.peekMapping()
			if err != nil {
				return nil, err
			}
			for i := 0; i < len(items); i += 2 {
				m.Set(items[i], items[i+1])
			}
		case opEmptySet:
			d.push(NewSet())
		case opAddItems:
			mark, err := d.popMark()
			if err != nil {
				return nil, err
			}
			items := append([]any{}, d.stack[mark:]...)
			d.stack = d.stack[:mark]
			s, err := d.peekSet()
			if err != nil {
				return nil, err
			}
			for _, it := range items {
				s.Add(it)
			}
		case opBuildStruct:
			if err := d.handleBuildStruct(); err != nil {
				return nil, err
			}
		case opBuildEnum:
			if err := d.handleBuildEnum(); err != nil {
				return nil, err
			}
		case opMemoize:
			if len(d.stack) == 0 {
				return nil, decodingErrorf("MEMOIZE on empty stack")
			}
			d.memo = append(d.memo, d.stack[len(d.stack)-1])
		case opBinPut:
			idx, err := d.readByte()
			if err != nil {
				return nil, err
			}
			if err := d.putAt(int(idx)); err != nil {
				return nil, err
			}
		case opLongBinPut:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			if err := d.putAt(int(binary.LittleEndian.Uint32(b))); err != nil {
				return nil, err
			}
		case opBinGet:
			idx, err := d.readByte()
			if err != nil {
				return nil, err
			}
			v, err := d.memoAt(int(idx))
			if err != nil {
				return nil, err
			}
			d.push(v)
		case opLongBinGet:
			b, err := d.readN(4)
			if err != nil {
				return nil, err
			}
			v, err := d.memoAt(int(binary.LittleEndian.Uint32(b)))
			if err != nil {
				return nil, err
			}
			d.push(v)
		case opNextBuffer:
			buf, err := d.buffers.next()
			if err != nil {
				return nil, err
			}
			d.push(buf)
		case opReadonlyBuf:
			if len(d.stack) == 0 {
				return nil, decodingErrorf("READONLY_BUFFER on empty stack")
			}
			top := len(d.stack) - 1
			buf, ok := d.stack[top].(PickleBuffer)
			if !ok {
				return nil, decodingErrorf("READONLY_BUFFER on non-buffer stack top (%T)", d.stack[top])
			}
			if !buf.Readonly() {
				d.stack[top] = NewPickleBuffer(Bytes(buf.bytes()))
			}
		default:
			return nil, &OpcodeError{Key: byte(op), Pos: d.pos - 1}
		}
	}
}

func (d *Decoder) finish() (any, error) {
	if len(d.stack) != 1 {
		return nil, decodingErrorf("STOP with %d items on stack, want 1", len(d.stack))
	}
	if !d.buffers.exhausted() {
		return nil, bufferMismatchError(d.buffers.remaining())
	}
	result := d.stack[0]
	return finalizeListBoxes(result, make(map[*listBox][]any), make(map[*gomap.Map[any, any]]bool)), nil
}

// handleBuildStruct pops the field-value tuple, then the typecode below it
// (encodeStruct/encodeComplex push typecode first, so the tuple sits on top).
func (d *Decoder) handleBuildStruct() error {
	fields, err := d.pop()
	if err != nil {
		return err
	}
	typecode, err := d.pop()
	if err != nil {
		return err
	}
	code, err := asTypecode(typecode)
	if err != nil {
		return err
	}
	tup, ok := fields.(Tuple)
	if !ok {
		return decodingErrorf("BUILDSTRUCT field value is a %T, want Tuple", fields)
	}
	args := []any(tup)

	if code == complexTypecode {
		if len(args) != 2 {
			return decodingErrorf("BUILDSTRUCT complex descriptor wants 2 fields, got %d", len(args))
		}
		re, ok1 := args[0].(float64)
		im, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return decodingErrorf("BUILDSTRUCT complex descriptor wants float fields")
		}
		d.push(complex(re, im))
		return nil
	}

	desc, ok := d.registry.structByCode(code)
	if !ok {
		return &ValueError{Msg: "BUILDSTRUCT: no struct registered for typecode " + itoa(code)}
	}
	// A field can still be a live listBox here if it aliases a list whose
	// own APPEND/APPENDS opcodes come later in the stream than this
	// BUILDSTRUCT (a list-through-struct cycle). reflect.Set below needs a
	// concretely typed value, so take the box's current backing array — a
	// struct field directly aliasing a cyclic list only sees that list's
	// contents as of this point in the stream, not its final state.
	for i, a := range args {
		if box, ok := a.(*listBox); ok {
			args[i] = box.items
		}
	}
	inst, err := desc.instantiate(args)
	if err != nil {
		return err
	}
	d.push(inst)
	return nil
}

// handleBuildEnum pops the value, then the typecode below it (encodeEnum
// pushes typecode first, so the value sits on top).
func (d *Decoder) handleBuildEnum() error {
	value, err := d.pop()
	if err != nil {
		return err
	}
	typecode, err := d.pop()
	if err != nil {
		return err
	}
	code, err := asTypecode(typecode)
	if err != nil {
		return err
	}
	desc, ok := d.registry.enumByCode(code)
	if !ok {
		return &ValueError{Msg: "BUILDENUM: no enum registered for typecode " + itoa(code)}
	}
	inst, err := desc.instantiate(normalizeEnumValue(value))
	if err != nil {
		return err
	}
	d.push(inst)
	return nil
}

// normalizeEnumValue narrows a decoded wire value (int64 or *big.Int for
// ints) to the int64/string shape EnumDescriptor.member expects.
func normalizeEnumValue(v any) any {
	if b, ok := v.(*big.Int); ok && b.IsInt64() {
		return b.Int64()
	}
	return v
}

func asTypecode(v any) (uint32, error) {
	switch x := v.(type) {
	case int64:
		if x < 0 || x > maxTypecode {
			return 0, decodingErrorf("typecode %d out of range", x)
		}
		return uint32(x), nil
	case *big.Int:
		if !x.IsUint64() || x.Uint64() > maxTypecode {
			return 0, decodingErrorf("typecode %s out of range", x.String())
		}
		return uint32(x.Uint64()), nil
	default:
		return 0, decodingErrorf("typecode must be an integer, got %T", v)
	}
}

// finalizeListBoxes resolves every listBox left in v (after decode
// completes) into a plain []any, aliasing each box's own backing array
// into any slot that refers back to the box itself so that a genuinely
// self-referential list round-trips as a self-referential []any rather
// than as an opaque internal pointer type. Mapping values are
// recursively resolved too (so a dict holding a still-growing list
// resolves correctly); Mapping/Set keys and Set/FrozenSet elements never
// need it, since only hashable values can occupy those positions and a
// list can never be hashable.
func finalizeListBoxes(v any, seenBoxes map[*listBox][]any, seenMappings map[*gomap.Map[any, any]]bool) any {
	switch x := v.(type) {
	case *listBox:
		if done, ok := seenBoxes[x]; ok {
			return done
		}
		seenBoxes[x] = x.items
		for i, e := range x.items {
			x.items[i] = finalizeListBoxes(e, seenBoxes, seenMappings)
		}
		seenBoxes[x] = x.items
		return x.items
	case Tuple:
		for i, e := range x {
			x[i] = finalizeListBoxes(e, seenBoxes, seenMappings)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = finalizeListBoxes(e, seenBoxes, seenMappings)
		}
		return x
	case Mapping:
		if x.m == nil || seenMappings[x.m] {
			return x
		}
		seenMappings[x.m] = true
		var pending []struct{ k, v any }
		x.Iter()(func(k, val any) bool {
			nv := finalizeListBoxes(val, seenBoxes, seenMappings)
			pending = append(pending, struct{ k, v any }{k, nv})
			return true
		})
		for _, p := range pending {
			x.Set(p.k, p.v)
		}
		return x
	default:
		return v
	}
}

// decodeLong is the inverse of encodeLongBytes: the minimal signed
// little-endian two's complement bytes CPython's encode_long produces.
// Returns int64 when the value fits, *big.Int otherwise.
func decodeLong(le []byte) any {
	if len(le) == 0 {
		return int64(0)
	}
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	negative := be[0]&0x80 != 0
	mag := new(big.Int).SetBytes(be)
	if negative {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(le)*8))
		mag.Sub(mag, mod)
	}
	if mag.IsInt64() {
		return mag.Int64()
	}
	return mag
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func itoa(u uint32) string {
	if u == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for u > 0 {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	return string(buf[i:])
}

func (d *Decoder) push(v any) { d.stack = append(d.stack, v) }

func (d *Decoder) pop() (any, error) {
	if len(d.stack) == 0 {
		return nil, decodingErrorf("pop on empty stack")
	}
	v := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return v, nil
}

func (d *Decoder) popMark() (int, error) {
	if len(d.marks) == 0 {
		return 0, decodingErrorf("no matching MARK")
	}
	mark := d.marks[len(d.marks)-1]
	d.marks = d.marks[:len(d.marks)-1]
	if mark > len(d.stack) {
		return 0, decodingErrorf("corrupt mark")
	}
	return mark, nil
}

func (d *Decoder) peekListBox() (*listBox, error) {
	if len(d.stack) == 0 {
		return nil, decodingErrorf("list opcode on empty stack")
	}
	box, ok := d.stack[len(d.stack)-1].(*listBox)
	if !ok {
		return nil, decodingErrorf("list opcode on non-list stack top (%T)", d.stack[len(d.stack)-1])
	}
	return box, nil
}

func (d *Decoder) peekMapping() (Mapping, error) {
	if len(d.stack) == 0 {
		return Mapping{}, decodingErrorf("dict opcode on empty stack")
	}
	m, ok := d.stack[len(d.stack)-1].(Mapping)
	if !ok {
		return Mapping{}, decodingErrorf("dict opcode on non-dict stack top (%T)", d.stack[len(d.stack)-1])
	}
	return m, nil
}

func (d *Decoder) peekSet() (Set, error) {
	if len(d.stack) == 0 {
		return Set{}, decodingErrorf("set opcode on empty stack")
	}
	s, ok := d.stack[len(d.stack)-1].(Set)
	if !ok {
		return Set{}, decodingErrorf("set opcode on non-set stack top (%T)", d.stack[len(d.stack)-1])
	}
	return s, nil
}

func (d *Decoder) putAt(idx int) error {
	if idx != len(d.memo) {
		return decodingErrorf("PUT/LONG_BINPUT with non-dense id %d, want %d", idx, len(d.memo))
	}
	if len(d.stack) == 0 {
		return decodingErrorf("PUT/LONG_BINPUT on empty stack")
	}
	d.memo = append(d.memo, d.stack[len(d.stack)-1])
	return nil
}

func (d *Decoder) memoAt(idx int) (any, error) {
	if idx < 0 || idx >= len(d.memo) {
		return nil, decodingErrorf("GET %d out of range (memo has %d entries)", idx, len(d.memo))
	}
	return d.memo[idx], nil
}

func (d *Decoder) readOpcode() (opcode, error) {
	b, err := d.readByte()
	if err != nil {
		return 0, err
	}
	return opcode(b), nil
}

func (d *Decoder) readByte() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, decodingErrorf("unexpected end of stream at position %d", d.pos)
	}
	b := d.data[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readN(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, decodingErrorf("unexpected end of stream at position %d, want %d bytes", d.pos, n)
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}
