package korniszon

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex literal %q: %v", s, err)
	}
	return b
}

func TestDecodePrimitives(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want any
	}{
		{"none", "80054e2e", None{}},
		{"true", "8005882e", true},
		{"false", "8005892e", false},
		{"int1", "80054b052e", int64(5)},
		{"int1_max", "80054bff2e", int64(0xff)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDecoder(mustHex(t, tt.hex)).Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !deepEqual(got, tt.want) {
				t.Errorf("Decode(%s) = %#v, want %#v", tt.hex, got, tt.want)
			}
		})
	}
}

func TestDecodeTruncatedStream(t *testing.T) {
	// PROTO header present but stream cut off mid BININT2 operand.
	data := mustHex(t, "80054de8")
	if _, err := NewDecoder(data).Decode(); err == nil {
		t.Fatal("Decode of truncated stream succeeded, want error")
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	data := mustHex(t, "8005ff2e")
	_, err := NewDecoder(data).Decode()
	if _, ok := err.(*OpcodeError); !ok {
		t.Fatalf("Decode(unknown opcode) = %v (%T), want *OpcodeError", err, err)
	}
}

func TestDecodeGetOutOfRange(t *testing.T) {
	// BINGET for memo slot 0 with nothing ever memoized.
	data := mustHex(t, "800568002e")
	if _, err := NewDecoder(data).Decode(); err == nil {
		t.Fatal("Decode with unresolved GET succeeded, want error")
	}
}

func TestDecodeStackNotSingleton(t *testing.T) {
	// Two values pushed (NONE, NEWTRUE) but never combined before STOP.
	data := mustHex(t, "80054e882e")
	if _, err := NewDecoder(data).Decode(); err == nil {
		t.Fatal("Decode with 2 items left on stack at STOP succeeded, want error")
	}
}

func TestDecodeBufferMismatch(t *testing.T) {
	var encBuf bytes.Buffer
	cb := func(PickleBuffer) {}
	enc := NewEncoderWithConfig(&encBuf, &EncoderConfig{BufferCallback: cb})
	if err := enc.Encode(NewPickleBuffer(Bytes("oob"))); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Decode with no buffers supplied at all: NEXT_BUFFER itself errors.
	if _, err := NewDecoder(encBuf.Bytes()).Decode(); err == nil {
		t.Fatal("Decode consuming NEXT_BUFFER with no buffers supplied succeeded, want error")
	}

	// Decode with the buffer supplied but an extra unconsumed one left over.
	data := encBuf.Bytes()
	extra := []PickleBuffer{NewPickleBuffer(Bytes("oob")), NewPickleBuffer(Bytes("leftover"))}
	dec := NewDecoderWithConfig(data, &DecoderConfig{Buffers: extra})
	if _, err := dec.Decode(); err == nil {
		t.Fatal("Decode with unconsumed buffers succeeded, want error")
	}
}

func TestEncodeDecodeOutOfBandBuffer(t *testing.T) {
	var collected []PickleBuffer
	var encBuf bytes.Buffer
	enc := NewEncoderWithConfig(&encBuf, &EncoderConfig{
		BufferCallback: func(b PickleBuffer) { collected = append(collected, b) },
	})
	if err := enc.Encode(NewPickleBuffer(ByteArray("payload"))); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(collected) != 1 {
		t.Fatalf("collected %d buffers, want 1", len(collected))
	}

	dec := NewDecoderWithConfig(encBuf.Bytes(), &DecoderConfig{Buffers: collected})
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	buf, ok := got.(PickleBuffer)
	if !ok {
		t.Fatalf("got %T, want PickleBuffer", got)
	}
	if string(buf.bytes()) != "payload" {
		t.Errorf("got %q, want %q", buf.bytes(), "payload")
	}
}

func TestRegistryStructRoundTrip(t *testing.T) {
	type Point struct {
		X, Y int64
	}
	reg := NewRegistry()
	desc := NewStructDescriptor((*Point)(nil),
		StructField{Name: "X"},
		StructField{Name: "Y", Default: int64(0), HasDefault: true},
	)
	if err := reg.RegisterStruct(7, desc); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}

	var buf bytes.Buffer
	enc := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	p := &Point{X: 3, Y: 4}
	if err := enc.Encode(p); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoderWithConfig(buf.Bytes(), &DecoderConfig{Registry: reg})
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gp, ok := got.(*Point)
	if !ok {
		t.Fatalf("got %T, want *Point", got)
	}
	if *gp != *p {
		t.Errorf("got %+v, want %+v", *gp, *p)
	}
}

func TestRegistryEnumRoundTrip(t *testing.T) {
	type Color int
	const (
		Red Color = iota
		Green
		Blue
	)
	reg := NewRegistry()
	desc := NewEnumDescriptor(Color(0), EnumInt,
		EnumMember{Name: "Red", IntValue: int64(Red)},
		EnumMember{Name: "Green", IntValue: int64(Green)},
		EnumMember{Name: "Blue", IntValue: int64(Blue)},
	)
	if err := reg.RegisterEnum(3, desc); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}

	var buf bytes.Buffer
	enc := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	if err := enc.Encode(Green); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoderWithConfig(buf.Bytes(), &DecoderConfig{Registry: reg})
	got, err := dec.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.(Color) != Green {
		t.Errorf("got %v, want Green", got)
	}
}

func TestDecodeBuildEnumUnknownValue(t *testing.T) {
	type Color int
	reg := NewRegistry()
	desc := NewEnumDescriptor(Color(0), EnumInt, EnumMember{Name: "Red", IntValue: 0})
	if err := reg.RegisterEnum(9, desc); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}

	// encodeEnum does not validate against the descriptor's member set, so
	// encoding an out-of-range enum value (99, not Red's 0) still succeeds
	// on encode and produces a stream BUILDENUM legitimately rejects.
	var buf bytes.Buffer
	enc := NewEncoderWithConfig(&buf, &EncoderConfig{Registry: reg})
	if err := enc.Encode(Color(99)); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	dec := NewDecoderWithConfig(buf.Bytes(), &DecoderConfig{Registry: reg})
	_, err := dec.Decode()
	if _, ok := err.(*ValueError); !ok {
		t.Fatalf("Decode(unknown enum value, EnumInt) = %v (%T), want *ValueError", err, err)
	}
}
