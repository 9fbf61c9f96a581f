package mmjp

import (
	"math"

	"github.com/lwch/logging"
)

// UnigramTrainer owns the mutable piece storage and trie used while
// fitting the unigram LM via expectation-maximization.
type UnigramTrainer struct {
	Pieces *PieceTable
	Trie   *Trie
	logp   []float64 // natural-log probabilities, one per piece id

	MaxPieceLenCP int
	MinProb       float64
}

// NewUnigramTrainer creates a trainer over the given seed vocabulary
// (typically the output of the candidate extractor plus the
// single-codepoint coverage set).
func NewUnigramTrainer(maxPieceLenCP int, minProb float64) *UnigramTrainer {
	return &UnigramTrainer{
		Pieces:        NewPieceTable(),
		Trie:          NewTrie(1024),
		MaxPieceLenCP: maxPieceLenCP,
		MinProb:       minProb,
	}
}

// AddPiece registers a candidate piece (building its trie entry) with
// the given flags. Single-codepoint pieces are made mandatory
// automatically by PieceTable.Add.
func (t *UnigramTrainer) AddPiece(b []byte, flags uint8) (PieceID, error) {
	id, err := t.Pieces.Add(b, flags)
	if err != nil {
		return 0, err
	}
	if err := t.Trie.AddBytes(b); err != nil {
		return 0, wrapErr("UnigramTrainer.AddPiece", KindInternal, "trie insert failed", err)
	}
	node := t.Trie.SearchPrefixBytes(b)
	if node == 0 {
		return 0, newErr("UnigramTrainer.AddPiece", KindInternal, "piece not found right after insertion")
	}
	if err := t.Trie.SetTerminalValue(node, id); err != nil {
		return 0, err
	}
	return id, nil
}

// initLogP seeds logp uniformly if the slice is all-zero (the driver's
// first call), otherwise leaves existing values untouched.
func (t *UnigramTrainer) initLogP() {
	n := t.Pieces.Len()
	if len(t.logp) == n {
		allZero := true
		for _, v := range t.logp {
			if v != 0 {
				allZero = false
				break
			}
		}
		if !allZero {
			return
		}
	}
	t.logp = make([]float64, n)
	u := math.Log(1.0 / float64(n))
	for i := range t.logp {
		t.logp[i] = u
	}
}

// pieceMatch is a (pieceID, lenCP) pair produced by a trie walk
// starting at some sentence position.
type pieceMatch struct {
	id    PieceID
	lenCP int
}

// matchesAt walks the trie from sentence position i (in codepoints),
// returning every (pieceID, lenCP) pair matching a prefix starting at
// i, up to MaxPieceLenCP codepoints.
func (t *UnigramTrainer) matchesAt(runes []rune, i int) []pieceMatch {
	var out []pieceMatch
	node := t.Trie.RootNode()
	maxLen := t.MaxPieceLenCP
	if maxLen <= 0 || i+maxLen > len(runes) {
		maxLen = len(runes) - i
	}
	for k := 1; k <= maxLen; k++ {
		cp := runes[i+k-1]
		var buf [4]byte
		enc, err := encodeRune(buf[:0], cp)
		if err != nil {
			break
		}
		var ok bool
		for _, bb := range enc {
			node = t.Trie.Step(node, bb)
			if node == 0 {
				ok = false
				break
			}
			ok = true
		}
		if !ok {
			break
		}
		if id, isTerm := t.Trie.Terminal(node); isTerm {
			out = append(out, pieceMatch{id, k})
		}
	}
	return out
}

// RootNode exposes the trie root for the matcher above.
func (t *Trie) RootNode() int32 { return trieRoot }

// eStepResult accumulates fractional piece counts and corpus
// statistics for one E-step pass.
type eStepResult struct {
	counts    []float64
	sentences int
	loglik    float64
	tokens    float64
}

// logWeightFloor below which a contribution is skipped for numerical
// sanity.
const logWeightFloor = -80.0

// eStepSentence runs forward-backward over one sentence (as
// codepoints) and accumulates fractional piece counts into acc.
// Returns KindNoCover if the sentence's partition function is -Inf.
func (t *UnigramTrainer) eStepSentence(runes []rune, acc *eStepResult) error {
	n := len(runes)
	if n == 0 {
		return nil
	}
	alpha := make([]float64, n+1)
	for i := range alpha {
		alpha[i] = math.Inf(-1)
	}
	alpha[0] = 0
	// matches[i] holds every (id, k) pair starting at i, reused by beta.
	matches := make([][]pieceMatch, n)
	for i := 0; i < n; i++ {
		matches[i] = t.matchesAt(runes, i)
	}
	for i := 0; i < n; i++ {
		if math.IsInf(alpha[i], -1) {
			continue
		}
		for _, m := range matches[i] {
			w := alpha[i] + t.logp[m.id]
			j := i + m.lenCP
			alpha[j] = logSumExp(alpha[j], w)
		}
	}
	logZ := alpha[n]
	if math.IsInf(logZ, -1) {
		missing := firstMissingCodepoint(t, runes)
		return noCoverRune("UnigramTrainer.eStepSentence", "sentence has zero mass under current vocabulary", missing)
	}

	beta := make([]float64, n+1)
	for i := range beta {
		beta[i] = math.Inf(-1)
	}
	beta[n] = 0
	for i := n - 1; i >= 0; i-- {
		for _, m := range matches[i] {
			j := i + m.lenCP
			if math.IsInf(beta[j], -1) {
				continue
			}
			w := t.logp[m.id] + beta[j]
			beta[i] = logSumExp(beta[i], w)
		}
	}

	for i := 0; i < n; i++ {
		if math.IsInf(alpha[i], -1) {
			continue
		}
		for _, m := range matches[i] {
			j := i + m.lenCP
			if math.IsInf(beta[j], -1) {
				continue
			}
			logW := alpha[i] + t.logp[m.id] + beta[j] - logZ
			if logW < logWeightFloor {
				continue
			}
			acc.counts[m.id] += math.Exp(logW)
		}
	}
	acc.loglik += logZ
	acc.sentences++
	acc.tokens += expectedTokenCount(alpha, beta, logZ, matches, t.logp, n)
	return nil
}

// expectedTokenCount estimates E[#tokens] for the sentence from the
// forward/backward tables, used purely for driver-loop diagnostics.
func expectedTokenCount(alpha, beta []float64, logZ float64, matches [][]pieceMatch, logp []float64, n int) float64 {
	var total float64
	for i := 0; i < n; i++ {
		if math.IsInf(alpha[i], -1) {
			continue
		}
		for _, m := range matches[i] {
			j := i + m.lenCP
			if math.IsInf(beta[j], -1) {
				continue
			}
			logW := alpha[i] + logp[m.id] + beta[j] - logZ
			if logW < logWeightFloor {
				continue
			}
			total += math.Exp(logW)
		}
	}
	return total
}

// firstMissingCodepoint returns the first single-codepoint piece in
// runes that has no vocabulary entry, to aid NoCover diagnosis.
func firstMissingCodepoint(t *UnigramTrainer, runes []rune) rune {
	for _, r := range runes {
		var buf [4]byte
		enc, err := encodeRune(buf[:0], r)
		if err != nil {
			continue
		}
		if _, ok := t.Pieces.Lookup(enc); !ok {
			return r
		}
	}
	if len(runes) > 0 {
		return runes[0]
	}
	return 0
}

// EStep runs forward-backward over every sentence in corpus, fanning
// the work out across a bounded goroutine pool (see corpus.go),
// returning merged fractional piece counts and aggregate statistics.
func (t *UnigramTrainer) EStep(corpus [][]rune) (*eStepResult, error) {
	return parallelEStep(corpus, t.Pieces.Len(), 0, t.eStepSentence)
}

// MStep normalizes fractional counts (plus smoothing pseudocounts)
// into probabilities, floors by MinProb, then re-normalizes once so the
// probabilities sum to one. That final division can leave a floored
// entry slightly below MinProb; the floor is not re-applied.
func (t *UnigramTrainer) MStep(counts []float64, smoothing float64) {
	total := 0.0
	for i := range counts {
		counts[i] += smoothing
		total += counts[i]
	}
	if total <= 0 {
		return
	}
	probs := make([]float64, len(counts))
	for i, c := range counts {
		probs[i] = c / total
	}
	if t.MinProb > 0 {
		sum := 0.0
		for i := range probs {
			if probs[i] < t.MinProb {
				probs[i] = t.MinProb
			}
			sum += probs[i]
		}
		for i := range probs {
			probs[i] /= sum
		}
	}
	t.logp = make([]float64, len(probs))
	for i, p := range probs {
		t.logp[i] = math.Log(p)
	}
}

// TrainStats summarizes one training iteration for logging.
type TrainStats struct {
	Sentences  int
	LogLik     float64
	Tokens     float64
	VocabSize  int
}

// TrainConfig drives the EM/(optional MDL-prune) loop.
type TrainConfig struct {
	Iterations int
	Smoothing  float64
	Prune      *PruneConfig // nil disables pruning between iterations
}

// Train runs the EM driver loop for cfg.Iterations rounds, pruning
// between rounds if cfg.Prune is set, logging per-round statistics.
func (t *UnigramTrainer) Train(corpus [][]rune, cfg TrainConfig) ([]TrainStats, error) {
	t.initLogP()
	var history []TrainStats
	for iter := 1; iter <= cfg.Iterations; iter++ {
		acc, err := t.EStep(corpus)
		if err != nil {
			return history, err
		}
		t.MStep(acc.counts, cfg.Smoothing)
		stats := TrainStats{
			Sentences: acc.sentences,
			LogLik:    acc.loglik,
			Tokens:    acc.tokens,
			VocabSize: t.Pieces.Len(),
		}
		history = append(history, stats)
		trieStats := t.Trie.Stats()
		logging.Info("unigram round %d, vocab=%d sentences=%d loglik=%.2f tokens=%.1f trie_load=%.3f",
			iter, stats.VocabSize, stats.Sentences, stats.LogLik, stats.Tokens, trieStats.LoadFactor)
		if cfg.Prune != nil {
			if err := t.Prune(*cfg.Prune); err != nil {
				return history, err
			}
		}
	}
	return history, nil
}

// Export freezes the trainer's mutable state into an inference-ready
// UnigramLM plus a read-only trie view.
func (t *UnigramTrainer) Export(unkBase, unkPerCP int16) (*UnigramLM, *TrieRO) {
	logp16 := make([]int16, t.Pieces.Len())
	for i, v := range t.logp {
		logp16[i] = floatToQ88(v)
	}
	lm := &UnigramLM{LogP: logp16, UnkBase: unkBase, UnkPerCP: unkPerCP}
	return lm, t.Trie.RO()
}
