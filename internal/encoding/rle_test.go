package encoding

import (
	"reflect"
	"testing"
)

func TestRLE_RoundTrip(t *testing.T) {
	cases := [][]uint16{
		nil,
		{0},
		{7, 7, 7, 7},
		{0, 0, 1, 1, 1, 2, 0xFFFF, 0xFFFF},
		{5, 4, 3, 2, 1, 0},
	}
	for _, in := range cases {
		enc := EncodeRLE(in)
		out, err := DecodeRLE(enc)
		if err != nil {
			t.Fatalf("decode(%v): %v", in, err)
		}
		if len(in) == 0 && len(out) == 0 {
			continue
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("round trip %v -> %q -> %v", in, enc, out)
		}
	}
}

func TestRLE_LongRunCompresses(t *testing.T) {
	ids := make([]uint16, 10000)
	for i := range ids {
		ids[i] = 3
	}
	enc := EncodeRLE(ids)
	if len(enc) > 16 {
		t.Fatalf("10000-cell run encoded to %d chars", len(enc))
	}
	out, err := DecodeRLE(enc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != len(ids) || out[0] != 3 || out[len(out)-1] != 3 {
		t.Fatalf("long run decoded badly: len=%d", len(out))
	}
}

func TestRLE_RejectsGarbage(t *testing.T) {
	if _, err := DecodeRLE("not base64!!!"); err == nil {
		t.Fatalf("invalid base64 accepted")
	}
	// A varint pair whose palette id exceeds uint16.
	if _, err := DecodeRLE("gIAEAQ=="); err == nil {
		t.Fatalf("oversized palette id accepted")
	}
}
