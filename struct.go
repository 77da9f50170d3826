package korniszon
// Record struct descriptors (§3, §4.6): immutable metadata describing a
// caller's Go struct type as a fixed-schema value with an ordered list of
// named fields and per-field defaults. The struct-deriving metaclass
// machinery of the Python original is out of scope (§1); only its output
// contract is implemented here, consumed by the Encoder/Decoder and by
// Registry.

import (
	"fmt"
	"reflect"
)

// DefaultPolicy classifies how a record struct's missing trailing field is
// materialized at instantiation time (§4.6).
type DefaultPolicy int

const (
	// ImmutableShare shares the descriptor's single default instance.
	ImmutableShare DefaultPolicy = iota
	// EmptyMutableFresh allocates a fresh, empty container of the same kind.
	EmptyMutableFresh
	// DeepCopyMutable performs a structural deep copy of the default.
	DeepCopyMutable
)

// StructField describes one ordered field of a record struct.
type StructField struct {
	Name       string
	Default    any
	HasDefault bool
	Policy     DefaultPolicy
}

// StructDescriptor is the immutable, ordered-field metadata for one
// registered Go struct type. Record struct values are always represented
// as a pointer to the described struct type, giving them the identity a
// mutable Python object has; a typed nil pointer of the described struct
// type (e.g. (*Point)(nil)) passed to NewStructDescriptor fixes the
// described type.
type StructDescriptor struct {
	typ    reflect.Type // pointer type, e.g. *Point
	elem   reflect.Type // pointee struct type, e.g. Point
	fields []StructField
}

// NewStructDescriptor builds a descriptor for the struct type pointed to by
// zero, an untyped nil pointer of the described type (e.g. (*Point)(nil)),
// with fields listed in encode/decode order. When HasDefault is true and
// Policy is left at its zero value (ImmutableShare), Policy is inferred
// from Default: an empty []any, ByteArray, Mapping or Set gets
// EmptyMutableFresh, a non-empty one DeepCopyMutable, anything else stays
// ImmutableShare. A non-zero Policy set by the caller is kept as is;
// ImmutableShare cannot be forced for a mutable-container default.
func NewStructDescriptor(zero any, fields ...StructField) *StructDescriptor {
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Pointer || typ.Elem().Kind() != reflect.Struct {
		panic("korniszon: NewStructDescriptor requires a typed nil struct pointer, e.g. (*Point)(nil)")
	}
	out := make([]StructField, len(fields))
	for i, f := range fields {
		if f.HasDefault {
			f.Policy = resolvePolicy(f.Default, f.Policy)
		}
		out[i] = f
	}
	return &StructDescriptor{typ: typ, elem: typ.Elem(), fields: out}
}

func resolvePolicy(def any, explicit DefaultPolicy) DefaultPolicy {
	if explicit != ImmutableShare {
		return explicit
	}
	return classifyDefault(def)
}

func classifyDefault(v any) DefaultPolicy {
	switch x := v.(type) {
	case []any:
		if len(x) == 0 {
			return EmptyMutableFresh
		}
		return DeepCopyMutable
	case ByteArray:
		if len(x) == 0 {
			return EmptyMutableFresh
		}
		return DeepCopyMutable
	case Mapping:
		if x.Len() == 0 {
			return EmptyMutableFresh
		}
		return DeepCopyMutable
	case Set:
		if x.Len() == 0 {
			return EmptyMutableFresh
		}
		return DeepCopyMutable
	default:
		return ImmutableShare
	}
}

// NumFields returns the number of fields this descriptor was built with.
func (d *StructDescriptor) NumFields() int { return len(d.fields) }

// FieldNames returns the ordered field names.
func (d *StructDescriptor) FieldNames() []string {
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Type returns the pointer type this descriptor describes.
func (d *StructDescriptor) Type() reflect.Type { return d.typ }

// fieldValues extracts every described field's value from instance (a
// pointer to elem), in descriptor order, for the encoder to walk.
func (d *StructDescriptor) fieldValues(instance any) []any {
	rv := reflect.ValueOf(instance)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	out := make([]any, len(d.fields))
	for i, f := range d.fields {
		out[i] = rv.FieldByName(f.Name).Interface()
	}
	return out
}

// instantiate builds a new *elem from positional args, applying the
// forward/backward schema-evolution policy of §4.6 and §8: missing trailing
// arguments are filled from defaults (error if a required field — one with
// no default — is missing); extra trailing arguments beyond the descriptor's
// field count are discarded.
func (d *StructDescriptor) instantiate(args []any) (any, error) {
	if len(args) > len(d.fields) {
		args = args[:len(d.fields)] // backward-compat: discard trailing extras
	}

	out := reflect.New(d.elem)
	for i, f := range d.fields {
		var val any
		switch {
		case i < len(args):
			val = args[i]
		case f.HasDefault:
			val = materializeDefault(f)
		default:
			return nil, &TypeError{Type: d.elem.Name(), Reason: fmt.Sprintf("missing required argument %q", f.Name)}
		}
		fv := out.Elem().FieldByName(f.Name)
		if !fv.CanSet() {
			return nil, &TypeError{Type: d.elem.Name(), Reason: fmt.Sprintf("field %q is not settable (unexported?)", f.Name)}
		}
		fv.Set(reflect.ValueOf(val))
	}
	return out.Interface(), nil
}

func materializeDefault(f StructField) any {
	switch f.Policy {
	case ImmutableShare:
		return f.Default
	default: // EmptyMutableFresh, DeepCopyMutable
		return deepCopy(f.Default)
	}
}
