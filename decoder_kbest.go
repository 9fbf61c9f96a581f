package mmjp

import "sort"

// Candidate is one ranked segmentation returned by KBest.
type Candidate struct {
	Boundaries []int // byte indices
	Score      int32 // Q8.8
}

type kbestCand struct {
	val  int32
	j    int
	rank int
}

// KBest enumerates up to nbest distinct segmentations of b under model
// m, ranked by strictly non-increasing score (k-best Viterbi, tracking
// the top-k incoming scores at every lattice state), clamped to
// MaxNBest.
func KBest(w *WorkArea, m *Model, b []byte, nbest int) ([]Candidate, error) {
	if nbest <= 0 {
		return nil, newErr("KBest", KindBadArg, "nbest must be positive")
	}
	if nbest > MaxNBest {
		nbest = MaxNBest
	}
	runes, err := DecodeAll(b)
	if err != nil {
		return nil, err
	}
	n := len(runes)
	if n == 0 {
		return []Candidate{{Boundaries: []int{0, 0}, Score: int32(m.CRF.BOSTo1)}}, nil
	}
	if err := precompute(w, m, b, runes); err != nil {
		return nil, err
	}

	l := w.l
	w.ensureKBest(nbest)

	w.KBest[w.kbestSlot(0, 0, 0, nbest)] = KBestEntry{Score: int32(m.CRF.BOSTo1), PrevLen: -1, PrevRank: -1}
	w.KBestLen[w.spanIdx(0, 0)] = 1

	for pos := 1; pos <= n; pos++ {
		maxK := l
		if maxK > pos {
			maxK = pos
		}
		for k := 1; k <= maxK; k++ {
			s := pos - k
			jLo, jHi := 1, l
			if s == 0 {
				jLo, jHi = 0, 0
			}
			if jHi > s {
				jHi = s
			}
			var cands []kbestCand
			for j := jLo; j <= jHi; j++ {
				predLen := int(w.KBestLen[w.spanIdx(s, j)])
				if predLen == 0 {
					continue
				}
				edge := edgeWeight(w, m, s, j, k)
				for rank := 0; rank < predLen; rank++ {
					pred := w.KBest[w.kbestSlot(s, j, rank, nbest)]
					cands = append(cands, kbestCand{val: addQ88Sat(pred.Score, edge), j: j, rank: rank})
				}
			}
			sort.SliceStable(cands, func(a, b int) bool { return cands[a].val > cands[b].val })
			if len(cands) > nbest {
				cands = cands[:nbest]
			}
			for rank, c := range cands {
				w.KBest[w.kbestSlot(pos, k, rank, nbest)] = KBestEntry{
					Score: c.val, PrevLen: int32(c.j), PrevRank: int32(c.rank),
				}
			}
			w.KBestLen[w.spanIdx(pos, k)] = int32(len(cands))
		}
	}

	maxK := l
	if maxK > n {
		maxK = n
	}
	type finalCand struct {
		val     int32
		k, rank int
	}
	var finals []finalCand
	for k := 1; k <= maxK; k++ {
		count := int(w.KBestLen[w.spanIdx(n, k)])
		for rank := 0; rank < count; rank++ {
			e := w.KBest[w.kbestSlot(n, k, rank, nbest)]
			finals = append(finals, finalCand{val: e.Score, k: k, rank: rank})
		}
	}
	if len(finals) == 0 {
		return nil, newErr("KBest", KindNoCover, "no path spans the input under the current vocabulary and max word length")
	}
	sort.SliceStable(finals, func(a, b int) bool { return finals[a].val > finals[b].val })
	if len(finals) > nbest {
		finals = finals[:nbest]
	}

	out := make([]Candidate, len(finals))
	for i, f := range finals {
		boundsCP := backtrackKBest(w, n, f.k, f.rank, nbest)
		bytesB := make([]int, len(boundsCP))
		for j, cp := range boundsCP {
			bytesB[j] = w.Offsets[cp]
		}
		out[i] = Candidate{Boundaries: bytesB, Score: f.val}
	}
	return out, nil
}

// backtrackKBest walks the k-best table's (PrevLen,PrevRank) chain from
// (n,k,rank) back to the root, returning codepoint boundaries ascending.
func backtrackKBest(w *WorkArea, n, k, rank, nbest int) []int {
	var rev []int
	t, curK, curRank := n, k, rank
	rev = append(rev, t)
	for t > 0 {
		e := w.KBest[w.kbestSlot(t, curK, curRank, nbest)]
		s := t - curK
		rev = append(rev, s)
		t, curK, curRank = s, int(e.PrevLen), int(e.PrevRank)
	}
	out := make([]int, len(rev))
	copy(out, rev)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
