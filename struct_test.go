package korniszon

import "testing"

type testRecord struct {
	Name string
	Tags []any
}

func TestStructDescriptorDefaultPolicies(t *testing.T) {
	desc := NewStructDescriptor((*testRecord)(nil),
		StructField{Name: "Name", Default: "anon", HasDefault: true},
		StructField{Name: "Tags", Default: []any{}, HasDefault: true},
	)

	inst1, err := desc.instantiate([]any{})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	r1 := inst1.(*testRecord)
	if r1.Name != "anon" {
		t.Errorf("Name = %q, want %q", r1.Name, "anon")
	}

	inst2, err := desc.instantiate([]any{})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	r2 := inst2.(*testRecord)

	r1.Tags = append(r1.Tags, "x")
	if len(r2.Tags) != 0 {
		t.Errorf("EmptyMutableFresh default shared across instances: r2.Tags = %v", r2.Tags)
	}
}

func TestStructDescriptorDeepCopyDefault(t *testing.T) {
	shared := []any{int64(1), int64(2)}
	desc := NewStructDescriptor((*testRecord)(nil),
		StructField{Name: "Name", Default: "x", HasDefault: true},
		StructField{Name: "Tags", Default: shared, HasDefault: true},
	)

	inst1, err := desc.instantiate([]any{})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	r1 := inst1.(*testRecord)
	r1.Tags[0] = int64(99)
	if shared[0] != int64(1) {
		t.Errorf("non-empty mutable default was shared, not deep-copied: shared[0] = %v", shared[0])
	}
}

func TestStructDescriptorMissingRequiredField(t *testing.T) {
	desc := NewStructDescriptor((*testRecord)(nil),
		StructField{Name: "Name"},
	)
	_, err := desc.instantiate(nil)
	te, ok := err.(*TypeError)
	if !ok {
		t.Fatalf("instantiate(missing required field) = %v (%T), want *TypeError", err, err)
	}
	if te.Reason == "" {
		t.Error("TypeError has no Reason")
	}
}

func TestStructDescriptorExtraArgsDiscarded(t *testing.T) {
	desc := NewStructDescriptor((*testRecord)(nil),
		StructField{Name: "Name"},
	)
	inst, err := desc.instantiate([]any{"hi", "extra", "more-extra"})
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if inst.(*testRecord).Name != "hi" {
		t.Errorf("Name = %q, want %q", inst.(*testRecord).Name, "hi")
	}
}

func TestNewStructDescriptorPanicsOnNonPointer(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewStructDescriptor(non-pointer) did not panic")
		}
	}()
	NewStructDescriptor(testRecord{})
}
