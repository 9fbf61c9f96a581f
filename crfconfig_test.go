package mmjp

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseCRFConfigBasic(t *testing.T) {
	src := `
# a comment
; also a comment

trans00 = 1.5
trans01 = -2.0
trans10 = 0.25
trans11 = 0
bos_to1 = 3.0
feat 0 1 3 0 = 4.5
feat 3 0 1 2 9.0
`
	c, err := ParseCRFConfig(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseCRFConfig: %v", err)
	}
	if c.Trans00 != 1.5 || c.Trans01 != -2.0 || c.Trans10 != 0.25 || c.Trans11 != 0 {
		t.Fatalf("scalar transitions mismatch: %+v", c)
	}
	if c.BOSTo1 != 3.0 {
		t.Fatalf("BOSTo1 = %v, want 3.0", c.BOSTo1)
	}
	if got := c.Feat[FeatureKey(0, 1, 3, 0)]; got != 4.5 {
		t.Fatalf("feat(0,1,3,0) = %v, want 4.5", got)
	}
	if got := c.Feat[FeatureKey(3, 0, 1, 2)]; got != 9.0 {
		t.Fatalf("feat without '=' did not parse, got %v", got)
	}
}

func TestParseCRFConfigRejectsUnknownScalarKey(t *testing.T) {
	if _, err := ParseCRFConfig(strings.NewReader("bogus = 1\n")); ErrorKind(err) != KindBadArg {
		t.Fatalf("unknown scalar key should be KindBadArg, got %v", err)
	}
}

func TestParseCRFConfigSkipsOutOfRangeFeatureKey(t *testing.T) {
	c, err := ParseCRFConfig(strings.NewReader("feat 300 0 0 0 = 1.0\n"))
	if err != nil {
		t.Fatalf("out-of-range feature key should be skipped, not fail the parse: %v", err)
	}
	if len(c.Feat) != 0 {
		t.Fatalf("out-of-range feature key should not be recorded, got %+v", c.Feat)
	}
}

func TestWriteCRFConfigRoundTrip(t *testing.T) {
	c := NewTrainableCRF(0)
	c.Trans00, c.Trans01, c.Trans10, c.Trans11 = 1, -1, 2, -2
	c.BOSTo1 = 5
	c.Feat[FeatureKey(1, 0, 2, 0)] = 6.5

	var buf bytes.Buffer
	if err := WriteCRFConfig(&buf, c); err != nil {
		t.Fatalf("WriteCRFConfig: %v", err)
	}
	got, err := ParseCRFConfig(&buf)
	if err != nil {
		t.Fatalf("ParseCRFConfig(written config): %v", err)
	}
	if got.Trans00 != c.Trans00 || got.Trans01 != c.Trans01 || got.Trans10 != c.Trans10 || got.Trans11 != c.Trans11 {
		t.Fatalf("round-tripped transitions mismatch: got %+v, want %+v", got, c)
	}
	if got.BOSTo1 != c.BOSTo1 {
		t.Fatalf("round-tripped BOSTo1 = %v, want %v", got.BOSTo1, c.BOSTo1)
	}
	if got.Feat[FeatureKey(1, 0, 2, 0)] != 6.5 {
		t.Fatalf("round-tripped feature weight mismatch: %+v", got.Feat)
	}
}
