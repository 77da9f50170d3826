package korniszon

// Opcode is a single byte interpreted by the decoder's dispatch loop.
//
// Values and names follow the generic pickle protocol-5 dialect exactly, so
// that streams produced here decode under the generic unpickler and vice
// versa. BUILDSTRUCT and BUILDENUM are reserved extension opcodes taken from
// the unused range immediately above the standard table; see DESIGN.md for
// how their byte values were chosen.
type opcode byte

const (
	opMark          opcode = '('
	opStop          opcode = '.'
	opPop           opcode = '0'
	opPopMark       opcode = '1'
	opBinFloat      opcode = 'G'
	opBinInt        opcode = 'J'
	opBinInt1       opcode = 'K'
	opLong4         opcode = '\x8b'
	opLong1         opcode = '\x8a'
	opBinInt2       opcode = 'M'
	opNone          opcode = 'N'
	opBinUnicode    opcode = 'X'
	opAppend        opcode = 'a'
	opEmptyDict     opcode = '}'
	opAppends       opcode = 'e'
	opBinGet        opcode = 'h'
	opLongBinGet    opcode = 'j'
	opEmptyList     opcode = ']'
	opSetItem       opcode = 's'
	opTuple         opcode = 't'
	opEmptyTuple    opcode = ')'
	opSetItems      opcode = 'u'
	opBinUnicode8   opcode = '\x8d'
	opBinBytes8     opcode = '\x8e'
	opShortBinUnic  opcode = '\x8c'
	opBinBytes      opcode = 'B'
	opShortBinBytes opcode = 'C'
	opProto         opcode = '\x80'
	opNewTrue       opcode = '\x88'
	opNewFalse      opcode = '\x89'
	opTuple1        opcode = '\x85'
	opTuple2        opcode = '\x86'
	opTuple3        opcode = '\x87'
	opMemoize       opcode = '\x94'
	opFrame         opcode = '\x95'
	opEmptySet      opcode = '\x8f'
	opAddItems      opcode = '\x90'
	opFrozenSet     opcode = '\x91'
	opByteArray8    opcode = '\x96'
	opNextBuffer    opcode = '\x97'
	opReadonlyBuf   opcode = '\x98'

	// BUILDSTRUCT/BUILDENUM are not part of the generic dialect. The byte
	// 0xb0 for BUILDSTRUCT is grounded on a literal test fixture in
	// _examples/original_source/tests/test_quickle.py
	// (test_unpickle_errors_buildstruct_on_non_struct_object); 0xb1 for
	// BUILDENUM is an explicit, ungrounded choice one byte above it.
	opBuildStruct opcode = '\xb0'
	opBuildEnum   opcode = '\xb1'

	// legacy PUT/LONG_BINPUT: not emitted, accepted on decode as MEMOIZE
	// aliases with an explicit (must-be-dense) id.
	opBinPut     opcode = 'q'
	opLongBinPut opcode = 'r'
)

func (op opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

var opcodeNames = map[opcode]string{
	opMark:          "MARK",
	opStop:          "STOP",
	opPop:           "POP",
	opPopMark:       "POP_MARK",
	opBinFloat:      "BINFLOAT",
	opBinInt:        "BININT",
	opBinInt1:       "BININT1",
	opBinInt2:       "BININT2",
	opLong1:         "LONG1",
	opLong4:         "LONG4",
	opNone:          "NONE",
	opBinUnicode:    "BINUNICODE",
	opAppend:        "APPEND",
	opEmptyDict:     "EMPTY_DICT",
	opAppends:       "APPENDS",
	opBinGet:        "BINGET",
	opLongBinGet:    "LONG_BINGET",
	opEmptyList:     "EMPTY_LIST",
	opSetItem:       "SETITEM",
	opTuple:         "TUPLE",
	opEmptyTuple:    "EMPTY_TUPLE",
	opSetItems:      "SETITEMS",
	opBinUnicode8:   "BINUNICODE8",
	opBinBytes8:     "BINBYTES8",
	opShortBinUnic:  "SHORT_BINUNICODE",
	opBinBytes:      "BINBYTES",
	opShortBinBytes: "SHORT_BINBYTES",
	opProto:         "PROTO",
	opNewTrue:       "NEWTRUE",
	opNewFalse:      "NEWFALSE",
	opTuple1:        "TUPLE1",
	opTuple2:        "TUPLE2",
	opTuple3:        "TUPLE3",
	opMemoize:       "MEMOIZE",
	opFrame:         "FRAME",
	opEmptySet:      "EMPTY_SET",
	opAddItems:      "ADDITEMS",
	opFrozenSet:     "FROZENSET",
	opByteArray8:    "BYTEARRAY8",
	opNextBuffer:    "NEXT_BUFFER",
	opReadonlyBuf:   "READONLY_BUFFER",
	opBuildStruct:   "BUILDSTRUCT",
	opBuildEnum:     "BUILDENUM",
	opBinPut:        "BINPUT",
	opLongBinPut:    "LONG_BINPUT",
}

// highestProtocol is the only protocol this module speaks.
const highestProtocol = 5

// batchSize bounds how many values APPENDS/SETITEMS/ADDITEMS batch before a
// fresh MARK, matching the generic pickler's own batching size.
const batchSize = 1000
