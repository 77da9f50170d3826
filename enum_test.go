package korniszon

import "testing"

func TestEnumDescriptorIntRoundTrip(t *testing.T) {
	type Suit int
	const (
		Clubs Suit = iota
		Hearts
		Spades
	)
	d := NewEnumDescriptor(Suit(0), EnumInt,
		EnumMember{Name: "Clubs", IntValue: int64(Clubs)},
		EnumMember{Name: "Hearts", IntValue: int64(Hearts)},
		EnumMember{Name: "Spades", IntValue: int64(Spades)},
	)

	got, err := d.instantiate(int64(Hearts))
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if got.(Suit) != Hearts {
		t.Errorf("instantiate(1) = %v, want Hearts", got)
	}
}

func TestEnumDescriptorStringRoundTrip(t *testing.T) {
	type Status string
	const (
		Open   Status = "open"
		Closed Status = "closed"
	)
	d := NewEnumDescriptor(Status(""), EnumString,
		EnumMember{Name: "Open", StrValue: string(Open)},
		EnumMember{Name: "Closed", StrValue: string(Closed)},
	)

	got, err := d.instantiate("closed")
	if err != nil {
		t.Fatalf("instantiate: %v", err)
	}
	if got.(Status) != Closed {
		t.Errorf("instantiate(%q) = %v, want Closed", "closed", got)
	}
}

func TestEnumDescriptorUnknownValue(t *testing.T) {
	type Suit int
	d := NewEnumDescriptor(Suit(0), EnumInt, EnumMember{Name: "Clubs", IntValue: 0})
	_, err := d.instantiate(int64(99))
	if _, ok := err.(*ValueError); !ok {
		t.Fatalf("instantiate(unknown value, EnumInt) = %v (%T), want *ValueError", err, err)
	}
}

func TestEnumDescriptorUnknownName(t *testing.T) {
	type Status string
	d := NewEnumDescriptor(Status(""), EnumString, EnumMember{Name: "Open", StrValue: "open"})
	_, err := d.instantiate("closed")
	if _, ok := err.(*AttributeError); !ok {
		t.Fatalf("instantiate(unknown value, EnumString) = %v (%T), want *AttributeError", err, err)
	}
}

func TestEnumDescriptorValueOf(t *testing.T) {
	type Suit int
	const Hearts Suit = 1
	d := NewEnumDescriptor(Suit(0), EnumInt, EnumMember{Name: "Hearts", IntValue: 1})
	if v := d.valueOf(Hearts); v.(int64) != 1 {
		t.Errorf("valueOf(Hearts) = %v, want 1", v)
	}
}

func TestNewEnumDescriptorPanicsOnKindMismatch(t *testing.T) {
	type Suit int
	defer func() {
		if recover() == nil {
			t.Fatal("NewEnumDescriptor(int type, EnumString) did not panic")
		}
	}()
	NewEnumDescriptor(Suit(0), EnumString)
}
