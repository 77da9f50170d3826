// Package korniszon encodes and decodes Python's pickle protocol-5
// binary-only wire format for a fixed set of value kinds plus two
// user-extensible kinds: record structs and enumerations.
//
// Use Encoder to write a value to an output stream:
//
//	e := korniszon.NewEncoder(w)
//	err := e.Encode(obj)
//
// Use Decoder to read one back from an in-memory byte slice — there is no
// stream interface on the decode side, only the fully materialized byte
// slice a matching Encoder produced:
//
//	d := korniszon.NewDecoder(data)
//	obj, err := d.Decode()
//
// The following table summarizes the mapping between Python and Go types:
//
//	Python		Go
//	------		--
//
//	None		↔  korniszon.None
//	bool		↔  bool
//	int		↔  int64, *big.Int (for values outside int64 range)
//	float		↔  float64
//	complex		↔  complex128
//	str		↔  string
//	bytes		↔  korniszon.Bytes
//	bytearray	↔  korniszon.ByteArray
//	tuple		↔  korniszon.Tuple
//	list		↔  []interface{}
//	dict		↔  korniszon.Mapping
//	set		↔  korniszon.Set
//	frozenset	↔  korniszon.FrozenSet
//	PickleBuffer	↔  korniszon.PickleBuffer (out-of-band buffers, §9)
//
// Record structs and enumerations have no single Go type; a caller's own Go
// struct or named int/string type stands in for them once registered with a
// Registry (see RegisterStruct, RegisterEnum) against a stable numeric
// typecode both the encoding and decoding side must agree on.
//
// Unlike a general-purpose pickler, korniszon never executes a reducer,
// never imports a module by name, and never constructs an arbitrary Python
// class — decoding a stream produced by an untrusted party can fail but
// cannot run attacker-chosen code: the closed type switch in Decoder.Decode
// only ever produces values of the kinds above plus whatever Registry the
// caller supplied.
package korniszon
