package korniszon

import (
	"hash/maphash"
	"math/big"
	"testing"
)

func TestEqualCrossNumericKinds(t *testing.T) {
	big1 := big.NewInt(1)
	tests := []struct {
		a, b any
		want bool
	}{
		{int64(1), 1.0, true},
		{int64(1), true, true},
		{int64(0), false, true},
		{1.0, big1, true},
		{int64(2), big1, false},
		{"1", int64(1), false},
		{Bytes("x"), Bytes("x"), true},
		{Bytes("x"), ByteArray("x"), false},
		{None{}, None{}, true},
		{complex(1, 0), int64(1), true},
		{complex(1, 1), int64(1), false},
	}
	for _, tt := range tests {
		if got := equal(tt.a, tt.b); got != tt.want {
			t.Errorf("equal(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestHashConsistentWithEqual(t *testing.T) {
	var seed maphash.Seed = maphash.MakeSeed()
	pairs := [][2]any{
		{int64(1), 1.0},
		{int64(1), true},
		{int64(0), false},
	}
	for _, p := range pairs {
		if !equal(p[0], p[1]) {
			t.Fatalf("test setup bug: equal(%#v, %#v) = false", p[0], p[1])
		}
		if hash(seed, p[0]) != hash(seed, p[1]) {
			t.Errorf("hash(%#v) != hash(%#v) despite equal", p[0], p[1])
		}
	}
}

func TestHashPanicsOnUnhashableType(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("hash([]any{...}) did not panic")
		}
	}()
	hash(maphash.MakeSeed(), []any{1, 2})
}

func TestEqualTupleStructural(t *testing.T) {
	a := Tuple{int64(1), "x"}
	b := Tuple{int64(1), "x"}
	c := Tuple{int64(1), "y"}
	if !equal(a, b) {
		t.Error("equal(a, b) = false, want true")
	}
	if equal(a, c) {
		t.Error("equal(a, c) = true, want false")
	}
}
