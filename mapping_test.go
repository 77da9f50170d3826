package korniszon

import "testing"

func TestMappingBasic(t *testing.T) {
	m := NewMapping()
	m.Set("a", int64(1))
	m.Set("b", int64(2))

	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if v, ok := m.Get_("a"); !ok || v.(int64) != 1 {
		t.Errorf("Get_(a) = %v, %v, want 1, true", v, ok)
	}
	m.Del("a")
	if _, ok := m.Get_("a"); ok {
		t.Error("key still present after Del")
	}
}

func TestMappingCrossTypeNumericKeys(t *testing.T) {
	m := NewMapping()
	m.Set(int64(1), "int-one")
	if v, ok := m.Get_(1.0); !ok || v != "int-one" {
		t.Errorf("Get_(1.0) = %v, %v, want %q, true", v, ok, "int-one")
	}
	if v, ok := m.Get_(true); !ok || v != "int-one" {
		t.Errorf("Get_(true) = %v, %v, want %q, true (bool 1 == int 1)", v, ok, "int-one")
	}
}

func TestMappingFrom(t *testing.T) {
	m := NewMappingFrom("x", int64(1), "y", int64(2))
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestMappingFromOddArgsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewMappingFrom with odd args did not panic")
		}
	}()
	NewMappingFrom("x")
}

func TestSetBasic(t *testing.T) {
	s := NewSetFrom(int64(1), int64(2), int64(2))
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (duplicates collapse)", s.Len())
	}
	if !s.Has(int64(1)) {
		t.Error("Has(1) = false")
	}
	s.Del(int64(1))
	if s.Has(int64(1)) {
		t.Error("Has(1) = true after Del")
	}
}

func TestSetFreezeSnapshot(t *testing.T) {
	s := NewSetFrom(int64(1), int64(2))
	fs := s.Freeze()
	s.Add(int64(3))
	if fs.Len() != 2 {
		t.Errorf("frozen snapshot len = %d, want 2 (mutation after Freeze leaked in)", fs.Len())
	}
	if !fs.Has(int64(1)) || !fs.Has(int64(2)) {
		t.Error("frozen snapshot missing original members")
	}
}

func TestFrozenSetFrom(t *testing.T) {
	fs := NewFrozenSetFrom(int64(1), int64(2), int64(3))
	if fs.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", fs.Len())
	}
	count := 0
	fs.Iter()(func(any) bool { count++; return true })
	if count != 3 {
		t.Errorf("Iter visited %d elements, want 3", count)
	}
}
