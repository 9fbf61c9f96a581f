package mmjp

// Decode runs best-path Viterbi decoding over b under model m, using w
// as scratch space. Returns byte offsets of each segmentation boundary
// and the winning Q8.8 path score.
func Decode(w *WorkArea, m *Model, b []byte) ([]int, int32, error) {
	runes, err := DecodeAll(b)
	if err != nil {
		return nil, 0, err
	}
	n := len(runes)
	if n == 0 {
		return []int{0, 0}, int32(m.CRF.BOSTo1), nil
	}
	if err := precompute(w, m, b, runes); err != nil {
		return nil, 0, err
	}

	l := w.l
	rowWidth := l + 1
	row0 := 0 % rowWidth
	for k := 0; k <= l; k++ {
		w.DPScore[row0*rowWidth+k] = NegInf
	}
	w.DPScore[row0*rowWidth+0] = int32(m.CRF.BOSTo1)

	for pos := 1; pos <= n; pos++ {
		row := pos % rowWidth
		for k := 0; k <= l; k++ {
			w.DPScore[row*rowWidth+k] = NegInf
		}
		maxK := l
		if maxK > pos {
			maxK = pos
		}
		for k := 1; k <= maxK; k++ {
			s := pos - k
			best := NegInf
			bestJ := int32(-1)
			jLo, jHi := 1, l
			if s == 0 {
				jLo, jHi = 0, 0
			}
			if jHi > s {
				jHi = s
			}
			predRow := s % rowWidth
			for j := jLo; j <= jHi; j++ {
				predVal := w.DPScore[predRow*rowWidth+j]
				if predVal <= NegInf {
					continue
				}
				edge := edgeWeight(w, m, s, j, k)
				val := addQ88Sat(predVal, edge)
				if val > best {
					best = val
					bestJ = int32(j)
				}
			}
			w.DPScore[row*rowWidth+k] = best
			w.BPPrevLen[w.spanIdx(pos, k)] = bestJ
		}
	}

	finalRow := n % rowWidth
	bestScore := NegInf
	bestK := -1
	maxK := l
	if maxK > n {
		maxK = n
	}
	for k := 1; k <= maxK; k++ {
		v := w.DPScore[finalRow*rowWidth+k]
		if v <= NegInf {
			continue
		}
		if v > bestScore || (v == bestScore && (bestK < 0 || k < bestK)) {
			bestScore = v
			bestK = k
		}
	}
	if bestK < 0 {
		return nil, 0, newErr("Decode", KindNoCover, "no path spans the input under the current vocabulary and max word length")
	}

	boundsCP := backtrackViterbi(w, n, bestK)
	bytesB := make([]int, len(boundsCP))
	for i, cp := range boundsCP {
		bytesB[i] = w.Offsets[cp]
	}
	return bytesB, bestScore, nil
}

// backtrackViterbi walks BPPrevLen from (n, k) back to (0,0),
// returning codepoint boundaries in ascending order.
func backtrackViterbi(w *WorkArea, n, k int) []int {
	var rev []int
	t, curK := n, k
	rev = append(rev, t)
	for t > 0 {
		j := int(w.BPPrevLen[w.spanIdx(t, curK)])
		s := t - curK
		rev = append(rev, s)
		t, curK = s, j
	}
	out := make([]int, len(rev))
	for i, v := range rev {
		out[i] = v
	}
	// rev was appended from N down to 0; reverse in place.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
