package korniszon
// Registry binds the user-extensible kinds — record structs and
// enumerations (§3, §4.5) — to the small integer typecodes carried on the
// wire by BUILDSTRUCT/BUILDENUM. It is the caller-supplied schema an
// Encoder/Decoder pair must agree on out of band; two ends with differently
// configured registries will silently (or loudly, for unknown typecodes)
// disagree about what a typecode means, the same way two ends of an
// og-rek/ogórek-style codec must agree on which custom classes a decoder
// Class callback will construct.

import (
	"fmt"
	"reflect"
)

const maxTypecode = 1<<32 - 1

// Registry is the set of record-struct and enum descriptors an Encoder or
// Decoder knows about, keyed on both a typecode (the wire representation)
// and a Go type (for encode-side dispatch by value).
type Registry struct {
	structsByCode map[uint32]*StructDescriptor
	structsByType map[reflect.Type]uint32

	enumsByCode map[uint32]*EnumDescriptor
	enumsByType map[reflect.Type]uint32
}

// NewRegistry returns an empty Registry. Use RegisterStruct/RegisterEnum to
// populate it.
func NewRegistry() *Registry {
	return &Registry{
		structsByCode: make(map[uint32]*StructDescriptor),
		structsByType: make(map[reflect.Type]uint32),
		enumsByCode:   make(map[uint32]*EnumDescriptor),
		enumsByType:   make(map[reflect.Type]uint32),
	}
}

// RegisterStruct binds a record struct descriptor to typecode. typecode
// must fit in the wire format's unsigned 32-bit typecode field (§4.5);
// re-registering an already-used typecode or Go type replaces the prior
// binding.
func (r *Registry) RegisterStruct(typecode uint64, d *StructDescriptor) error {
	if typecode == complexTypecode {
		return &ValueError{Msg: "typecode 0 is reserved for the built-in complex descriptor"}
	}
	if typecode > maxTypecode {
		return &ValueError{Msg: fmt.Sprintf("typecode %d exceeds the maximum wire typecode %d", typecode, uint32(maxTypecode))}
	}
	code := uint32(typecode)
	r.structsByCode[code] = d
	r.structsByType[d.typ] = code
	return nil
}

// RegisterEnum binds an enum descriptor to typecode, with the same 32-bit
// range check and replacement rule as RegisterStruct. Unlike RegisterStruct
// it accepts typecode 0, since the reserved complex typecode applies only
// to BUILDSTRUCT.
func (r *Registry) RegisterEnum(typecode uint64, d *EnumDescriptor) error {
	if typecode > maxTypecode {
		return &ValueError{Msg: fmt.Sprintf("typecode %d exceeds the maximum wire typecode %d", typecode, uint32(maxTypecode))}
	}
	code := uint32(typecode)
	r.enumsByCode[code] = d
	r.enumsByType[d.typ] = code
	return nil
}

// structByType returns the descriptor and typecode registered for v's Go
// type, if v is a pointer to a registered record struct type.
func (r *Registry) structByType(v any) (*StructDescriptor, uint32, bool) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, 0, false
	}
	code, ok := r.structsByType[typ]
	if !ok {
		return nil, 0, false
	}
	return r.structsByCode[code], code, true
}

// structByCode returns the descriptor registered for a wire typecode, used
// on decode.
func (r *Registry) structByCode(code uint32) (*StructDescriptor, bool) {
	d, ok := r.structsByCode[code]
	return d, ok
}

// enumByType returns the descriptor and typecode registered for v's Go
// type, if v is a registered enum member type.
func (r *Registry) enumByType(v any) (*EnumDescriptor, uint32, bool) {
	typ := reflect.TypeOf(v)
	if typ == nil {
		return nil, 0, false
	}
	code, ok := r.enumsByType[typ]
	if !ok {
		return nil, 0, false
	}
	return r.enumsByCode[code], code, true
}

// enumByCode returns the descriptor registered for a wire typecode, used on
// decode.
func (r *Registry) enumByCode(code uint32) (*EnumDescriptor, bool) {
	d, ok := r.enumsByCode[code]
	return d, ok
}

// structFieldValues returns v's ordered field values if v is a pointer to a
// registered record struct type, for the refcount pre-pass and the encoder
// to walk without either needing its own type-switch over every registered
// struct type.
func (r *Registry) structFieldValues(v any) ([]any, bool) {
	d, _, ok := r.structByType(v)
	if !ok {
		return nil, false
	}
	return d.fieldValues(v), true
}
