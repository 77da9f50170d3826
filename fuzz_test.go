package korniszon

import (
	"bytes"
	"testing"
)

// FuzzDecodeNoPanic feeds arbitrary byte slices to the decoder. Decode must
// either succeed or return an error; it must never panic on attacker-supplied
// input, since a Decoder is meant to be safe to run over an untrusted stream
// (doc.go).
func FuzzDecodeNoPanic(f *testing.F) {
	seeds := [][]byte{
		{},
		{0x80, 0x05, 0x2e},
		{0x80, 0x05, 0x4e, 0x2e},
		{0x80, 0x05, 0x88, 0x2e},
		{0x80, 0x05, 0x68, 0x00, 0x2e},
		{0x80, 0x05, 0xff, 0x2e},
	}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				t.Fatalf("Decode panicked on input %x: %v", data, r)
			}
		}()
		_, _ = NewDecoder(data).Decode()
	})
}

// FuzzEncodeDecodeRoundTrip checks that any string/int64/float64 value the
// encoder accepts decodes back out to an equal value.
func FuzzEncodeDecodeRoundTrip(f *testing.F) {
	f.Add("hello", int64(42), 3.5)
	f.Add("", int64(0), 0.0)
	f.Add("unicode éè", int64(-1), -1.25)

	f.Fuzz(func(t *testing.T, s string, i int64, fl float64) {
		v := Tuple{s, i, fl}
		var buf bytes.Buffer
		if err := NewEncoder(&buf).Encode(v); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := NewDecoder(buf.Bytes()).Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		tup, ok := got.(Tuple)
		if !ok || len(tup) != 3 {
			t.Fatalf("got %#v, want 3-tuple", got)
		}
		if tup[0] != s {
			t.Errorf("string round trip: got %q, want %q", tup[0], s)
		}
		if tup[1] != i {
			t.Errorf("int64 round trip: got %v, want %v", tup[1], i)
		}
		gotF, ok := tup[2].(float64)
		if !ok || (gotF != fl && !(gotF != gotF && fl != fl)) {
			t.Errorf("float64 round trip: got %v, want %v", tup[2], fl)
		}
	})
}
