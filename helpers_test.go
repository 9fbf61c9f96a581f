package mmjp

import "github.com/davecgh/go-spew/spew"

// dumpDecodeFailure renders w's lattice scratch space for a failing
// decode, so a test failure message carries more than "NoCover" —
// useful when a span table bug (stale SpanID/SpanLUni entries) hides
// behind an otherwise-plausible error.
func dumpDecodeFailure(w *WorkArea, n int) string {
	l := w.l
	return spew.Sdump(struct {
		N, L      int
		SpanID    []uint16
		SpanLUni  []int16
		BPPrevLen []int32
	}{
		N: n, L: l,
		SpanID:    w.SpanID[:(n+1)*(l+1)],
		SpanLUni:  w.SpanLUni[:(n+1)*(l+1)],
		BPPrevLen: w.BPPrevLen[:(n+1)*(l+1)],
	})
}

// buildTinyModel returns a minimal Model over a 3-piece vocabulary
// ("a", "b", "ab") with all CRF weights at zero, so every decode
// reduces to a pure unigram/bigram LM comparison — useful for
// exercising the lattice DP's control flow without a trained CRF.
func buildTinyModel(maxWordLenCP int) (*Model, error) {
	tr := NewTrie(16)
	pieces := []struct {
		bytes string
		id    uint16
	}{
		{"a", 0},
		{"b", 1},
		{"ab", 2},
	}
	for _, p := range pieces {
		if err := tr.AddBytes([]byte(p.bytes)); err != nil {
			return nil, err
		}
		node := tr.SearchPrefixBytes([]byte(p.bytes))
		if err := tr.SetTerminalValue(node, p.id); err != nil {
			return nil, err
		}
	}
	base, check := tr.Snapshot()
	ro, err := NewTrieRO(base, check)
	if err != nil {
		return nil, err
	}

	lm := &UnigramLM{
		LogP:     []int16{floatToQ88(-5), floatToQ88(-5), floatToQ88(-1)},
		UnkBase:  floatToQ88(-20),
		UnkPerCP: floatToQ88(-5),
	}
	crf := &CRF{}
	classifier, err := NewClassifier(ModeASCII, 0, nil)
	if err != nil {
		return nil, err
	}
	return &Model{
		CRF: crf, LM: lm, Trie: ro, Classifier: classifier,
		MaxWordLenCP: maxWordLenCP, Lambda0: floatToQ88(1.0),
	}, nil
}
