package mmjp

import "testing"

func TestEncodeDecodeRuneRoundTrip(t *testing.T) {
	cps := []rune{'a', 0x7F, 0x80, 0x7FF, 0x800, 0xFFFF, 0x10000, maxRune}
	for _, cp := range cps {
		enc, err := encodeRune(nil, cp)
		if err != nil {
			t.Fatalf("encodeRune(%#x): %v", cp, err)
		}
		got, adv, err := decodeRune(enc, 0)
		if err != nil {
			t.Fatalf("decodeRune(%#x): %v", cp, err)
		}
		if got != cp || adv != len(enc) {
			t.Fatalf("round trip mismatch for %#x: got=%#x adv=%d len=%d", cp, got, adv, len(enc))
		}
	}
}

func TestEncodeRuneRejectsSurrogatesAndOutOfRange(t *testing.T) {
	for _, cp := range []rune{surrLo, surrHi, maxRune + 1, -1} {
		if _, err := encodeRune(nil, cp); err == nil {
			t.Fatalf("encodeRune(%#x): expected error", cp)
		}
	}
}

func TestDecodeRuneRejectsOverlong(t *testing.T) {
	// Overlong two-byte encoding of NUL: 0xC0 0x80.
	_, _, err := decodeRune([]byte{0xC0, 0x80}, 0)
	if ErrorKind(err) != KindInvalidUTF8 {
		t.Fatalf("expected KindInvalidUTF8, got %v", err)
	}
}

func TestDecodeRuneRejectsSurrogate(t *testing.T) {
	// 0xED 0xA0 0x80 encodes U+D800, a surrogate.
	_, _, err := decodeRune([]byte{0xED, 0xA0, 0x80}, 0)
	if ErrorKind(err) != KindInvalidUTF8 {
		t.Fatalf("expected KindInvalidUTF8, got %v", err)
	}
}

func TestDecodeRuneRejectsTruncatedSequence(t *testing.T) {
	_, _, err := decodeRune([]byte{0xE0, 0x80}, 0)
	if ErrorKind(err) != KindInvalidUTF8 {
		t.Fatalf("expected KindInvalidUTF8, got %v", err)
	}
}

func TestBuildOffsetsMonotone(t *testing.T) {
	b := []byte("aé中\U0001F600")
	offsets, err := BuildOffsets(b)
	if err != nil {
		t.Fatalf("BuildOffsets: %v", err)
	}
	if offsets[0] != 0 || offsets[len(offsets)-1] != len(b) {
		t.Fatalf("offsets must span [0,len(b)], got %v", offsets)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			t.Fatalf("offsets not strictly increasing at %d: %v", i, offsets)
		}
	}
}

func TestBuildOffsetsInvalidUTF8(t *testing.T) {
	if _, err := BuildOffsets([]byte{0xFF, 0xFE}); ErrorKind(err) != KindInvalidUTF8 {
		t.Fatalf("expected KindInvalidUTF8, got %v", err)
	}
}

func TestDecodeAllMatchesOffsetCount(t *testing.T) {
	b := []byte("hello 中文")
	runes, err := DecodeAll(b)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	offsets, err := BuildOffsets(b)
	if err != nil {
		t.Fatalf("BuildOffsets: %v", err)
	}
	if len(runes) != len(offsets)-1 {
		t.Fatalf("rune count %d != offset count-1 %d", len(runes), len(offsets)-1)
	}
}

func TestValidUTF8(t *testing.T) {
	if !ValidUTF8([]byte("abc中")) {
		t.Fatal("expected valid")
	}
	if ValidUTF8([]byte{0xC0, 0x80}) {
		t.Fatal("expected invalid (overlong)")
	}
}
