package korniszon
// Out-of-band buffer support (§3, §4.2, §4.3): protocol-5's mechanism for
// letting large binary payloads travel alongside the pickle stream instead
// of being inlined in it. A PickleBuffer value is, by default, encoded
// in-band like any Bytes/ByteArray; when the caller supplies a
// BufferCallback the encoder instead hands the buffer to the callback and
// emits a NEXT_BUFFER marker (followed by READONLY_BUFFER when the buffer
// wraps immutable Bytes), and the matching decode
// call consumes buffers from a caller-supplied ordered queue in the same
// order.

// BufferCallback receives each out-of-band PickleBuffer as the encoder
// reaches it, in encounter order. It is the Go analogue of pickle's
// buffer_callback constructor argument.
type BufferCallback func(PickleBuffer)

// bufferQueue is the decode-side counterpart: an ordered list of buffers
// supplied by the caller, consumed one at a time as NEXT_BUFFER opcodes are
// decoded.
type bufferQueue struct {
	buffers []PickleBuffer
	pos     int
}

func newBufferQueue(buffers []PickleBuffer) *bufferQueue {
	return &bufferQueue{buffers: buffers}
}

// next returns the next out-of-band buffer, or an error if the stream
// requests more buffers than the caller supplied.
func (q *bufferQueue) next() (PickleBuffer, error) {
	if q.pos >= len(q.buffers) {
		return PickleBuffer{}, decodingErrorf("out-of-band buffer requested but none remain (supplied %d)", len(q.buffers))
	}
	b := q.buffers[q.pos]
	q.pos++
	return b, nil
}

// exhausted reports whether every supplied buffer has been consumed; the
// decoder fails at STOP when it has not, mirroring CPython's UnpicklingError when a caller-supplied buffer is never
// claimed by the stream.
func (q *bufferQueue) exhausted() bool { return q.pos >= len(q.buffers) }

func (q *bufferQueue) remaining() int { return len(q.buffers) - q.pos }

func bufferMismatchError(remaining int) error {
	return decodingErrorf("%d out-of-band buffer(s) supplied but never consumed by the stream", remaining)
}
