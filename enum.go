package korniszon
// Enumeration descriptors (§3, §4.5): the second user-extensible kind,
// modeling a closed set of named members of either integer or string value
// type. Like StructDescriptor, only the output contract of the enum
// metaclass machinery is implemented — a fixed, ordered name/value member
// table — not the machinery that derives it.

import (
	"fmt"
	"reflect"
)

// EnumKind distinguishes the two supported underlying value types.
type EnumKind int

const (
	// EnumInt is an enum whose members carry an int64 value, the common
	// case (Python's IntEnum).
	EnumInt EnumKind = iota
	// EnumString is an enum whose members carry a string value.
	EnumString
)

// EnumMember is one named value of an enumeration.
type EnumMember struct {
	Name     string
	IntValue int64
	StrValue string
}

// EnumDescriptor is the immutable metadata for one registered Go enum type:
// a named integer or string constant type with a fixed set of members.
type EnumDescriptor struct {
	typ     reflect.Type
	kind    EnumKind
	byName  map[string]EnumMember
	byValue map[any]EnumMember
}

// NewEnumDescriptor builds a descriptor for the named type of zero (e.g. a
// Color(0) value of a `type Color int` declaration), with the given
// members. kind must match zero's underlying reflect.Kind family (EnumInt
// for integer-kinded types, EnumString for string-kinded types).
func NewEnumDescriptor(zero any, kind EnumKind, members ...EnumMember) *EnumDescriptor {
	typ := reflect.TypeOf(zero)
	if typ == nil {
		panic("korniszon: NewEnumDescriptor requires a typed zero value")
	}
	switch kind {
	case EnumInt:
		if k := typ.Kind(); k < reflect.Int || k > reflect.Int64 {
			panic(fmt.Sprintf("korniszon: NewEnumDescriptor: %v is not an integer-kinded type for EnumInt", typ))
		}
	case EnumString:
		if typ.Kind() != reflect.String {
			panic(fmt.Sprintf("korniszon: NewEnumDescriptor: %v is not a string-kinded type for EnumString", typ))
		}
	default:
		panic("korniszon: NewEnumDescriptor: unknown EnumKind")
	}

	d := &EnumDescriptor{
		typ:     typ,
		kind:    kind,
		byName:  make(map[string]EnumMember, len(members)),
		byValue: make(map[any]EnumMember, len(members)),
	}
	for _, m := range members {
		d.byName[m.Name] = m
		if kind == EnumInt {
			d.byValue[m.IntValue] = m
		} else {
			d.byValue[m.StrValue] = m
		}
	}
	return d
}

// Type returns the Go type this descriptor describes.
func (d *EnumDescriptor) Type() reflect.Type { return d.typ }

// Kind returns whether this enum's members carry int or string values.
func (d *EnumDescriptor) Kind() EnumKind { return d.kind }

// valueOf returns the wire value (int64 or string) carried by a member
// instance v of this enum's Go type.
func (d *EnumDescriptor) valueOf(v any) any {
	rv := reflect.ValueOf(v)
	if d.kind == EnumInt {
		return rv.Int()
	}
	return rv.String()
}

// member looks up a wire value (int64 or string, matching d.kind) and
// reports the matching member.
func (d *EnumDescriptor) member(value any) (EnumMember, bool) {
	m, ok := d.byValue[value]
	return m, ok
}

// instantiate builds a Go value of d's enum type carrying value (§7, §8,
// scenario 6). Both kinds are keyed by member value: the int64 value for
// EnumInt, the member's StrValue for EnumString. Member names are not
// carried on the wire and are not used for lookup. A miss on an EnumInt
// descriptor reports a ValueError naming the enum type, matching CPython's
// "ValueError: <enum> is not a valid <Enum>"; a miss on an EnumString
// descriptor reports an AttributeError naming the missing string value.
func (d *EnumDescriptor) instantiate(value any) (any, error) {
	m, ok := d.member(value)
	if !ok {
		if d.kind == EnumInt {
			return nil, &ValueError{Msg: fmt.Sprintf("%v is not a valid %v", value, d.typ)}
		}
		return nil, &AttributeError{Msg: fmt.Sprintf("%v has no member %v", d.typ, value)}
	}

	out := reflect.New(d.typ).Elem()
	if d.kind == EnumInt {
		out.SetInt(m.IntValue)
	} else {
		out.SetString(m.StrValue)
	}
	return out.Interface(), nil
}
