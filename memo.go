package korniszon
// The encoder's memo table (§4.2, §4.4): a monotonically-growing table
// mapping an object's Go identity to the memo index it was stored under, so
// that a later occurrence of the same identity can be encoded as a short
// BINGET/LONG_BINGET back-reference instead of being re-serialized.

// memoTable tracks which identities have already been memoized during one
// encode pass, and at what index.
type memoTable struct {
	index map[ident]int
	next  int
}

func newMemoTable() *memoTable {
	return &memoTable{index: make(map[ident]int)}
}

// lookup reports the memo index for id, if id has been memoized already.
func (m *memoTable) lookup(id ident) (int, bool) {
	idx, ok := m.index[id]
	return idx, ok
}

// put records id as memoized at the next available index and returns it.
// The caller is responsible for emitting the corresponding MEMOIZE opcode at
// the matching point in the output stream.
//
// The tuple-cycle case (§4.2, §9: a tuple containing a mutable sibling that
// points back to the tuple itself) needs no special table operation. A
// mutable container memoizes itself before its contents are encoded, so the
// cycle's inner encode of the tuple terminates immediately (the tuple's own
// identity is not yet in the table, so it proceeds to encode and memoize
// itself there, inside the nested call); the outer, original encode of the
// tuple then finds its own identity already memoized by that nested call
// once its element encoding returns, and emits POP (one per element, for
// the TUPLE1-3 forms) or POP_MARK, then GET, instead of the tuple opcode and
// MEMOIZE for its own (now-redundant) construction.
func (m *memoTable) put(id ident) int {
	idx := m.next
	m.index[id] = idx
	m.next++
	return idx
}
