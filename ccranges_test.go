package mmjp

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCCRangesDecimalAndHex(t *testing.T) {
	src := `
# comment
0x3040 0x309F 4
19968 40959 6
`
	ranges, err := ParseCCRanges(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseCCRanges: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[0].Lo != 0x3040 || ranges[0].Hi != 0x309F || ranges[0].Class != 4 {
		t.Fatalf("hex range mismatch: %+v", ranges[0])
	}
	if ranges[1].Lo != 19968 || ranges[1].Hi != 40959 || ranges[1].Class != 6 {
		t.Fatalf("decimal range mismatch: %+v", ranges[1])
	}
}

func TestParseCCRangesRejectsOverlap(t *testing.T) {
	src := "0 100 1\n50 150 2\n"
	if _, err := ParseCCRanges(strings.NewReader(src)); ErrorKind(err) != KindBadArg {
		t.Fatalf("overlapping ranges should be KindBadArg, got %v", err)
	}
}

func TestParseCCRangesRejectsOutOfRange(t *testing.T) {
	if _, err := ParseCCRanges(strings.NewReader("0 0x110000 1\n")); ErrorKind(err) != KindBadArg {
		t.Fatalf("end beyond max codepoint should be KindBadArg, got %v", err)
	}
	if _, err := ParseCCRanges(strings.NewReader("0 10 256\n")); ErrorKind(err) != KindBadArg {
		t.Fatalf("class_id > 255 should be KindBadArg, got %v", err)
	}
	if _, err := ParseCCRanges(strings.NewReader("10 5 1\n")); ErrorKind(err) != KindBadArg {
		t.Fatalf("start > end should be KindBadArg, got %v", err)
	}
}

func TestWriteCCRangesRoundTrip(t *testing.T) {
	ranges := []ClassRange{
		{Lo: 10, Hi: 20, Class: 1},
		{Lo: 30, Hi: 40, Class: 2},
	}
	var buf bytes.Buffer
	if err := WriteCCRanges(&buf, ranges); err != nil {
		t.Fatalf("WriteCCRanges: %v", err)
	}
	got, err := ParseCCRanges(&buf)
	if err != nil {
		t.Fatalf("ParseCCRanges(written ranges): %v", err)
	}
	if len(got) != len(ranges) {
		t.Fatalf("got %d ranges, want %d", len(got), len(ranges))
	}
	for i := range ranges {
		if got[i] != ranges[i] {
			t.Fatalf("range %d = %+v, want %+v", i, got[i], ranges[i])
		}
	}
}
