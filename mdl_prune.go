package mmjp

import (
	"container/heap"
	"math"

	"github.com/lwch/logging"
)

// PruneConfig selects one of the two MDL pruning modes.
type PruneConfig struct {
	Lambda0  float64
	LambdaLen float64

	// TargetSize > 0 selects target-size mode (keep top-K
	// non-mandatory scorers). TargetSize == 0 selects threshold mode
	// (keep pieces scoring > 0).
	TargetSize int
}

type mdlScore struct {
	id    PieceID
	score float64
}

// mdlHeap is a min-heap over mdlScore.score, used to keep the top-K
// scorers without sorting the whole candidate set.
type mdlHeap []mdlScore

func (h mdlHeap) Len() int            { return len(h) }
func (h mdlHeap) Less(i, j int) bool  { return h[i].score < h[j].score }
func (h mdlHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *mdlHeap) Push(x interface{}) { *h = append(*h, x.(mdlScore)) }
func (h *mdlHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// charCost returns the sum of -log p of id's constituent codepoint
// pieces, or +Inf if any codepoint piece is missing from the
// vocabulary.
func (t *UnigramTrainer) charCost(id PieceID) float64 {
	p := t.Pieces.Piece(id)
	if p == nil {
		return math.Inf(1)
	}
	pos := 0
	total := 0.0
	for pos < len(p.Bytes) {
		cp, adv, err := decodeRune(p.Bytes, pos)
		if err != nil {
			return math.Inf(1)
		}
		var buf [4]byte
		enc, _ := encodeRune(buf[:0], cp)
		cpID, ok := t.Pieces.Lookup(enc)
		if !ok {
			return math.Inf(1)
		}
		total += -t.logp[cpID]
		pos += adv
	}
	return total
}

// Prune applies MDL-style pruning: score every
// non-mandatory piece by (charCost - selfCost)*count - (lambda0 +
// lambdaLen*lenCP), keep the mandatory set plus either the top-K
// scorers (target-size mode) or every piece scoring > 0 (threshold
// mode), then compact the piece table and rebuild the trie in
// dictionary order.
//
// Prune assumes the most recent EStep's fractional counts are not
// needed afterward (they are recomputed on the next Train round), so
// it recomputes counts itself via a fresh EStep-free frequency proxy:
// callers that want count-weighted scores should call PruneWithCounts.
func (t *UnigramTrainer) Prune(cfg PruneConfig) error {
	counts := make([]float64, t.Pieces.Len())
	for i := range counts {
		counts[i] = math.Exp(t.logp[i])
	}
	return t.PruneWithCounts(cfg, counts)
}

// PruneWithCounts is Prune but takes explicit (fractional) counts,
// typically the most recent E-step's output, since the MDL scoring
// formula needs count(i) rather than the model's own probability.
func (t *UnigramTrainer) PruneWithCounts(cfg PruneConfig, counts []float64) error {
	n := t.Pieces.Len()
	keep := make(map[PieceID]bool, n)
	var scores []mdlScore

	t.Pieces.Range(func(id PieceID, p *Piece) {
		if p.Mandatory() {
			keep[id] = true
			return
		}
		charCost := t.charCost(id)
		selfCost := -t.logp[id]
		saved := (charCost - selfCost) * counts[id]
		cost := cfg.Lambda0 + cfg.LambdaLen*float64(p.LenCP)
		score := saved - cost
		if math.IsInf(score, 0) {
			score = -math.MaxFloat64 / 2
		}
		scores = append(scores, mdlScore{id: id, score: score})
	})

	if cfg.TargetSize > 0 {
		k := cfg.TargetSize - len(keep)
		if k < 0 {
			k = 0
		}
		h := &mdlHeap{}
		heap.Init(h)
		for _, s := range scores {
			if h.Len() < k {
				heap.Push(h, s)
			} else if h.Len() > 0 && s.score > (*h)[0].score {
				heap.Pop(h)
				heap.Push(h, s)
			}
		}
		for _, s := range *h {
			keep[s.id] = true
		}
	} else {
		for _, s := range scores {
			if s.score > 0 {
				keep[s.id] = true
			}
		}
	}

	before := t.Pieces.Len()
	remap, err := t.rebuild(keep)
	if err != nil {
		return err
	}
	logging.Info("mdl prune: %d -> %d pieces", before, t.Pieces.Len())
	_ = remap
	return nil
}

// rebuild compacts the piece table to the kept set (dictionary order)
// and rebuilds the trie by re-inserting every surviving piece in id
// order, which is dictionary order after Compact and tends to produce
// a smaller base array than insertion in arbitrary id order. It also
// remaps and re-normalizes the log-probability table.
func (t *UnigramTrainer) rebuild(keep map[PieceID]bool) ([]PieceID, error) {
	oldLogp := t.logp
	remap := t.Pieces.Compact(keep)

	newLogp := make([]float64, t.Pieces.Len())
	sum := 0.0
	for oldID, newID := range remap {
		if newID == PieceNone {
			continue
		}
		newLogp[newID] = oldLogp[oldID]
		sum += math.Exp(oldLogp[oldID])
	}
	if sum > 0 {
		logSum := math.Log(sum)
		for i := range newLogp {
			newLogp[i] -= logSum
		}
	}
	t.logp = newLogp

	t.Trie = NewTrie(1024)
	var insertErr error
	t.Pieces.Range(func(id PieceID, p *Piece) {
		if insertErr != nil {
			return
		}
		if err := t.Trie.AddBytes(p.Bytes); err != nil {
			insertErr = err
			return
		}
		node := t.Trie.SearchPrefixBytes(p.Bytes)
		if node == 0 {
			insertErr = newErr("UnigramTrainer.rebuild", KindInternal, "piece missing after reinsertion")
			return
		}
		insertErr = t.Trie.SetTerminalValue(node, id)
	})
	if insertErr != nil {
		return nil, insertErr
	}
	return remap, nil
}
