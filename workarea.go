package mmjp

// WorkArea is the externally-provided decode scratch space, owned
// exclusively by the caller for the duration of one decode call. It is
// carved once into aligned sub-slices sized for a codepoint capacity
// and a fixed max word length, and reused call over call: a successful
// decode leaves no further heap allocation behind it.
//
// Capacity grows only through Grow, which reallocates every sub-slice
// together (never piecemeal), mirroring the trie's all-or-nothing
// reservation discipline.
type WorkArea struct {
	capN int // codepoint capacity (N)
	l    int // max word length in codepoints (L), fixed for this work area

	Offsets   []int
	Emit0     []int16
	Emit1     []int16
	PrefEmit0 []int32

	// SpanID/SpanLUni are indexed [pos*(l+1)+k], pos in [0,capN], k in [0,l].
	SpanID   []uint16
	SpanLUni []int16

	// BPPrevLen is indexed like SpanID: the backpointer's predecessor
	// length j for the best path ending at (pos,k). Full O(N*L), not
	// ring-buffered, so a completed decode can backtrack from any
	// terminal state.
	BPPrevLen []int32

	// DPScore is the ring buffer of width l+1 rows (row = pos mod
	// (l+1)), width l+1 columns (k in [0,l]).
	DPScore []int32

	// KBest holds, per (pos,k), up to NBest (score, prevlen, prevrank)
	// entries sorted by descending score. Allocated lazily at the
	// requested nbest width the first time KBest decoding runs on this
	// work area, and reallocated when a different width is requested.
	KBest     []KBestEntry
	KBestLen  []int32 // number of valid entries at each (pos,k), same flat indexing
	kbestWide int
}

// KBestEntry is one ranked candidate arriving at a lattice state.
type KBestEntry struct {
	Score    int32
	PrevLen  int32 // j: predecessor state is (pos-k, j)
	PrevRank int32 // rank within the predecessor's own k-best list, -1 for BOS
}

// MaxNBest bounds k-best width, kept as a package constant rather than
// hardcoded inline so a vendored build can bump it at compile time.
const MaxNBest = 64

// NewWorkArea allocates a work area with codepoint capacity capN and
// max word length l.
func NewWorkArea(capN, l int) (*WorkArea, error) {
	if capN < 0 || l <= 0 {
		return nil, newErr("NewWorkArea", KindBadArg, "capacity and max word length must be positive")
	}
	w := &WorkArea{}
	w.alloc(capN, l)
	return w, nil
}

func (w *WorkArea) alloc(capN, l int) {
	w.capN, w.l = capN, l
	w.Offsets = make([]int, capN+1)
	w.Emit0 = make([]int16, capN)
	w.Emit1 = make([]int16, capN)
	w.PrefEmit0 = make([]int32, capN+1)
	w.SpanID = make([]uint16, (capN+1)*(l+1))
	w.SpanLUni = make([]int16, (capN+1)*(l+1))
	w.BPPrevLen = make([]int32, (capN+1)*(l+1))
	w.DPScore = make([]int32, (l+1)*(l+1))
}

// Capacity returns the current codepoint capacity and max word length.
func (w *WorkArea) Capacity() (capN, l int) { return w.capN, w.l }

// Grow reallocates the work area to at least newCapN codepoints of
// capacity, keeping the same max word length. Existing contents are
// not preserved — Grow is only ever called between decode attempts,
// never mid-DP.
func (w *WorkArea) Grow(newCapN int) error {
	if newCapN <= w.capN {
		return nil
	}
	w.alloc(newCapN, w.l)
	return nil
}

func (w *WorkArea) spanIdx(pos, k int) int { return pos*(w.l+1) + k }

func (w *WorkArea) ensureKBest(nbest int) {
	need := (w.capN + 1) * (w.l + 1) * nbest
	if len(w.KBest) >= need && w.kbestWide == nbest {
		for i := range w.KBestLen {
			w.KBestLen[i] = 0
		}
		return
	}
	w.KBest = make([]KBestEntry, need)
	w.KBestLen = make([]int32, (w.capN+1)*(w.l+1))
	w.kbestWide = nbest
}

func (w *WorkArea) kbestSlot(pos, k, rank, nbest int) int {
	return (pos*(w.l+1)+k)*nbest + rank
}
