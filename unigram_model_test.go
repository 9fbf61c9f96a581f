package mmjp

import "testing"

func TestUnigramLogPKnownAndUnknown(t *testing.T) {
	lm := &UnigramLM{
		LogP:     []int16{100, 200},
		UnkBase:  -500,
		UnkPerCP: -50,
	}
	if got := lm.UnigramLogP(0, 1); got != 100 {
		t.Fatalf("UnigramLogP(0) = %d, want 100", got)
	}
	if got := lm.UnigramLogP(1, 1); got != 200 {
		t.Fatalf("UnigramLogP(1) = %d, want 200", got)
	}
	if got := lm.UnigramLogP(PieceNone, 3); got != -650 {
		t.Fatalf("UnigramLogP(PieceNone, 3) = %d, want -650 (base + per_cp*3)", got)
	}
	// An id beyond the table (shouldn't happen in practice, but the
	// method must not panic) also falls back to the unknown penalty.
	if got := lm.UnigramLogP(PieceID(99), 2); got != -600 {
		t.Fatalf("UnigramLogP(out-of-range id) = %d, want -600", got)
	}
}

func TestBigramLogPHitAndBackoff(t *testing.T) {
	lm := &UnigramLM{
		Bigram: []BigramEntry{
			{Key: bigramKey(1, 2), LogP: 42},
			{Key: bigramKey(3, 4), LogP: 99},
		},
	}
	lm.SortBigram()
	if got := lm.BigramLogP(1, 2, -1000); got != 42 {
		t.Fatalf("BigramLogP hit = %d, want 42", got)
	}
	if got := lm.BigramLogP(5, 6, -1000); got != -1000 {
		t.Fatalf("BigramLogP miss should back off to the supplied unigram value, got %d", got)
	}
}

func TestBigramLogPEmptyTableAlwaysBacksOff(t *testing.T) {
	lm := &UnigramLM{}
	if got := lm.BigramLogP(1, 2, -77); got != -77 {
		t.Fatalf("BigramLogP with no bigram table = %d, want backoff -77", got)
	}
}

func TestSortBigramOrdersByKey(t *testing.T) {
	lm := &UnigramLM{
		Bigram: []BigramEntry{
			{Key: bigramKey(5, 5), LogP: 1},
			{Key: bigramKey(1, 1), LogP: 2},
			{Key: bigramKey(3, 3), LogP: 3},
		},
	}
	lm.SortBigram()
	for i := 1; i < len(lm.Bigram); i++ {
		if lm.Bigram[i].Key < lm.Bigram[i-1].Key {
			t.Fatalf("bigram table not sorted ascending at index %d", i)
		}
	}
}
