package korniszon

import "testing"

type regPoint struct{ X, Y int64 }

func TestRegistryRejectsReservedComplexTypecode(t *testing.T) {
	reg := NewRegistry()
	desc := NewStructDescriptor((*regPoint)(nil), StructField{Name: "X"}, StructField{Name: "Y"})
	err := reg.RegisterStruct(0, desc)
	ve, ok := err.(*ValueError)
	if !ok {
		t.Fatalf("RegisterStruct(0, ...) = %v (%T), want *ValueError", err, err)
	}
	if ve.Msg == "" {
		t.Error("ValueError has no Msg")
	}
}

func TestRegistryRejectsOversizedTypecode(t *testing.T) {
	reg := NewRegistry()
	desc := NewStructDescriptor((*regPoint)(nil), StructField{Name: "X"}, StructField{Name: "Y"})
	if err := reg.RegisterStruct(maxTypecode+1, desc); err == nil {
		t.Fatal("RegisterStruct(typecode > max) succeeded, want error")
	}
}

func TestRegistryReRegisterReplacesBinding(t *testing.T) {
	reg := NewRegistry()
	d1 := NewStructDescriptor((*regPoint)(nil), StructField{Name: "X"}, StructField{Name: "Y"})
	d2 := NewStructDescriptor((*regPoint)(nil), StructField{Name: "X"}, StructField{Name: "Y"})
	if err := reg.RegisterStruct(5, d1); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	if err := reg.RegisterStruct(5, d2); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	got, ok := reg.structByCode(5)
	if !ok || got != d2 {
		t.Errorf("structByCode(5) = %v, ok=%v, want d2", got, ok)
	}
}

func TestRegistryStructByTypeUnregisteredType(t *testing.T) {
	reg := NewRegistry()
	_, _, ok := reg.structByType(&regPoint{})
	if ok {
		t.Error("structByType found a binding for an unregistered type")
	}
}

func TestRegistryStructFieldValues(t *testing.T) {
	reg := NewRegistry()
	desc := NewStructDescriptor((*regPoint)(nil), StructField{Name: "X"}, StructField{Name: "Y"})
	if err := reg.RegisterStruct(1, desc); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	vals, ok := reg.structFieldValues(&regPoint{X: 1, Y: 2})
	if !ok {
		t.Fatal("structFieldValues: not found")
	}
	if vals[0].(int64) != 1 || vals[1].(int64) != 2 {
		t.Errorf("structFieldValues = %v, want [1 2]", vals)
	}
}
