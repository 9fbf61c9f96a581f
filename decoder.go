package mmjp

// Semi-Markov lattice decoder: a ring-buffered DP over states (pos, k)
// where pos is a codepoint position and k is the length in codepoints
// of the word ending at pos.

// precompute fills offsets, emissions, prefix sums and the span table
// for runes into w, validating that w's capacity covers len(runes) and
// model.MaxWordLenCP matches w's configured L.
func precompute(w *WorkArea, m *Model, b []byte, runes []rune) error {
	n := len(runes)
	if n > w.capN {
		return newErr("precompute", KindRange, "work area codepoint capacity too small")
	}
	if m.MaxWordLenCP != w.l {
		return newErr("precompute", KindBadArg, "work area max word length does not match model")
	}

	offsets, err := BuildOffsets(b)
	if err != nil {
		return err
	}
	if len(offsets) != n+1 {
		return newErr("precompute", KindInternal, "offsets/codepoint count mismatch")
	}
	copy(w.Offsets, offsets)

	for i := 0; i < n; i++ {
		prev, cur, next := m.classesAround(runes, i)
		w.Emit0[i] = m.CRF.Emit(0, prev, cur, next)
		w.Emit1[i] = m.CRF.Emit(1, prev, cur, next)
	}

	w.PrefEmit0[0] = 0
	for i := 0; i < n; i++ {
		w.PrefEmit0[i+1] = addQ88Sat(w.PrefEmit0[i], int32(w.Emit0[i]))
	}

	maxL := w.l
	for pos := 0; pos <= n; pos++ {
		w.SpanID[w.spanIdx(pos, 0)] = PieceNone
		w.SpanLUni[w.spanIdx(pos, 0)] = 0
		if pos >= n {
			continue
		}
		node := m.Trie.Root()
		limit := maxL
		if pos+limit > n {
			limit = n - pos
		}
		k := 1
		for ; k <= limit; k++ {
			cp := runes[pos+k-1]
			var buf [4]byte
			enc, encErr := encodeRune(buf[:0], cp)
			if encErr != nil {
				break
			}
			ok := true
			for _, bb := range enc {
				node = m.Trie.Step(node, bb)
				if node == 0 {
					ok = false
					break
				}
			}
			if !ok {
				break
			}
			id := PieceID(PieceNone)
			if tid, isTerm := m.Trie.Terminal(node); isTerm {
				id = tid
			}
			w.SpanID[w.spanIdx(pos, k)] = id
			w.SpanLUni[w.spanIdx(pos, k)] = m.LM.UnigramLogP(id, k)
		}
		// The trie walk can only fail once (a missing byte transition
		// forecloses every longer continuation too), but every (pos,k)
		// up to limit still needs a defined span per the precomputation
		// contract: default the remainder to the unknown-word span
		// rather than leaving stale scratch-space contents behind.
		for ; k <= limit; k++ {
			w.SpanID[w.spanIdx(pos, k)] = PieceNone
			w.SpanLUni[w.spanIdx(pos, k)] = m.LM.UnigramLogP(PieceNone, k)
		}
	}
	w.SpanID[w.spanIdx(0, 0)] = PieceBOS
	return nil
}

// segScore returns the CRF segment contribution for span [s,t) of
// length k: a single-codepoint span (k=1) scores as a bare label-1
// emission; a longer span scores as a 1-then-(k-2)*0-then-implicit-1
// label run, so its internal transitions collapse to a closed form
// instead of a per-codepoint loop.
func segScore(w *WorkArea, crf *CRF, s, k int) int32 {
	t := s + k
	if k == 1 {
		return addQ88Sat(int32(w.Emit1[s]), int32(crf.Trans11))
	}
	mid := w.PrefEmit0[t] - w.PrefEmit0[s+1]
	score := addQ88Sat(int32(w.Emit1[s]), int32(crf.Trans10))
	score = addQ88Sat(score, mid)
	score = addQ88Sat(score, int32(k-2)*int32(crf.Trans00))
	score = addQ88Sat(score, int32(crf.Trans01))
	return score
}

// edgeWeight returns the full DP edge weight from predecessor state
// (s,j) to (t,k) = (s+k,k): the segment score plus the lambda0-scaled
// bigram term, backing off to the current span's unigram log-prob.
func edgeWeight(w *WorkArea, m *Model, s, j, k int) int32 {
	seg := segScore(w, m.CRF, s, k)
	currID := PieceID(w.SpanID[w.spanIdx(s, k)])
	currLuni := w.SpanLUni[w.spanIdx(s, k)]

	var prevID PieceID
	if s == 0 && j == 0 {
		prevID = PieceBOS
	} else {
		prevID = PieceID(w.SpanID[w.spanIdx(s-j, j)])
	}
	bi := m.LM.BigramLogP(prevID, currID, currLuni)
	lambdaTerm := q88Mul(m.Lambda0, bi)
	return addQ88Sat(seg, int32(lambdaTerm))
}

// maxWorkAreaCodepoints bounds the decoder's Range auto-retry growth:
// doubling stops once the work area covers this many codepoints.
const maxWorkAreaCodepoints = 65530

func growOnRange(w *WorkArea, err error) bool {
	if ErrorKind(err) != KindRange {
		return false
	}
	capN, _ := w.Capacity()
	if capN >= maxWorkAreaCodepoints {
		return false
	}
	newCap := capN * 2
	if newCap <= capN {
		newCap = capN + 1
	}
	if newCap > maxWorkAreaCodepoints {
		newCap = maxWorkAreaCodepoints
	}
	return w.Grow(newCap) == nil
}

// DecodeRetry is Decode with an auto-retry on Range errors: on a
// work-area-too-small error it doubles w's capacity (capped at
// maxWorkAreaCodepoints) and retries once per doubling.
func DecodeRetry(w *WorkArea, m *Model, b []byte) ([]int, int32, error) {
	for {
		bounds, score, err := Decode(w, m, b)
		if err == nil || !growOnRange(w, err) {
			return bounds, score, err
		}
	}
}

// SampleRetry is Sample with the same Range auto-retry as DecodeRetry.
func SampleRetry(w *WorkArea, m *Model, b []byte, tau float64, rng *RNG) ([]int, error) {
	for {
		bounds, err := Sample(w, m, b, tau, rng)
		if err == nil || !growOnRange(w, err) {
			return bounds, err
		}
	}
}

// KBestRetry is KBest with the same Range auto-retry as DecodeRetry.
func KBestRetry(w *WorkArea, m *Model, b []byte, nbest int) ([]Candidate, error) {
	for {
		cands, err := KBest(w, m, b, nbest)
		if err == nil || !growOnRange(w, err) {
			return cands, err
		}
	}
}
