package mmjp

import "testing"

func TestClassifyASCII(t *testing.T) {
	c, err := NewClassifier(ModeASCII, 0, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	cases := []struct {
		cp   rune
		want uint8
	}{
		{' ', ClassSpace},
		{'\t', ClassSpace},
		{'5', ClassDigit},
		{'a', ClassAlpha},
		{'Z', ClassAlpha},
		{'!', ClassSymbol},
		{0x4E2D, ClassOther}, // 中, above ASCII in ModeASCII
	}
	for _, tc := range cases {
		if got := c.Classify(tc.cp); got != tc.want {
			t.Fatalf("Classify(%#x) = %d, want %d", tc.cp, got, tc.want)
		}
	}
}

func TestClassifyUTF8Len(t *testing.T) {
	c, err := NewClassifier(ModeUTF8Len, 0, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	cases := []struct {
		cp   rune
		want uint8
	}{
		{0xE9, ClassUTF8_2B},     // é
		{0x4E2D, ClassUTF8_3B},   // 中
		{0x1F600, ClassUTF8_4B},  // emoji
	}
	for _, tc := range cases {
		if got := c.Classify(tc.cp); got != tc.want {
			t.Fatalf("Classify(%#x) = %d, want %d", tc.cp, got, tc.want)
		}
	}
}

func TestClassifyCompat(t *testing.T) {
	c, err := NewClassifier(ModeCompat, 0, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	cases := []struct {
		cp   rune
		want uint8
	}{
		{0x3042, ClassHiragana}, // あ
		{0x30A2, ClassKatakana}, // ア
		{0x4E2D, ClassKanji},    // 中
		{0xFF21, ClassFullwidth},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.cp); got != tc.want {
			t.Fatalf("Classify(%#x) = %d, want %d", tc.cp, got, tc.want)
		}
	}
}

// TestClassifyCompatOutsideNamedRangesIsOther covers codepoints with
// East Asian Wide width that fall outside the four hard-coded COMPAT
// ranges: they must classify as ClassOther, not fall back to any
// width-based lookup.
func TestClassifyCompatOutsideNamedRangesIsOther(t *testing.T) {
	c, err := NewClassifier(ModeCompat, 0, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	cases := []rune{
		0xAC00, // Hangul syllable
		0x3400, // CJK Unified Ideographs Extension A
		0xA000, // Yi syllable
		0xA500, // Vai syllable
	}
	for _, cp := range cases {
		if got := c.Classify(cp); got != ClassOther {
			t.Fatalf("Classify(%#x) = %d, want ClassOther", cp, got)
		}
	}
}

func TestClassifyMetaCodepointsAlwaysSpace(t *testing.T) {
	c, err := NewClassifier(ModeASCII, 0, nil)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	for cp := metaEscape; cp <= metaCR; cp++ {
		if got := c.Classify(cp); got != ClassSpace {
			t.Fatalf("Classify(meta %#x) = %d, want ClassSpace", cp, got)
		}
	}
}

func TestClassifyRangesWithFallback(t *testing.T) {
	ranges := []ClassRange{{Lo: 0x4E00, Hi: 0x9FFF, Class: 42}}
	c, err := NewClassifier(ModeRanges, ModeUTF8Len, ranges)
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	if got := c.Classify(0x4E2D); got != 42 {
		t.Fatalf("Classify(in-range) = %d, want 42", got)
	}
	if got := c.Classify(0x1F600); got != ClassUTF8_4B {
		t.Fatalf("Classify(out-of-range) = %d, want fallback UTF8_4B", got)
	}
}

func TestNewClassifierRejectsOverlappingRanges(t *testing.T) {
	ranges := []ClassRange{
		{Lo: 0x100, Hi: 0x200, Class: 1},
		{Lo: 0x150, Hi: 0x300, Class: 2},
	}
	if _, err := NewClassifier(ModeRanges, ModeASCII, ranges); err == nil {
		t.Fatal("expected error for overlapping ranges")
	}
}

func TestNewClassifierRejectsBadFallback(t *testing.T) {
	if _, err := NewClassifier(ModeRanges, ModeCompat, nil); err == nil {
		t.Fatal("expected error: ModeCompat is not a valid fallback")
	}
}
