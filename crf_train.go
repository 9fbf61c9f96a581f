package mmjp

import (
	"math"
	"sort"

	"github.com/lwch/logging"
)

// Sentence is one supervised-training example: a sequence of codepoint
// character classes with a binary label sequence. y[0] == 1 is
// enforced by NewSentenceFromTokens (every sentence starts a word); the end of
// sentence is treated as an implicit transition to label 1 (EOS).
type Sentence struct {
	Classes []uint8
	Labels  []uint8
}

// NewSentenceFromTokens builds a Sentence from whitespace-separated
// gold tokens: every token's first codepoint is labeled 1, the rest 0.
func NewSentenceFromTokens(tokens [][]rune, classify func(rune) uint8) Sentence {
	var classes []uint8
	var labels []uint8
	for _, tok := range tokens {
		for i, r := range tok {
			classes = append(classes, classify(r))
			if i == 0 {
				labels = append(labels, 1)
			} else {
				labels = append(labels, 0)
			}
		}
	}
	if len(labels) > 0 {
		labels[0] = 1
	}
	return Sentence{Classes: classes, Labels: labels}
}

// lmOnlyCRF is the all-zero CRF substituted into the lattice DP by
// PseudoLabelSentence, stripping the CRF term out of edgeWeight so the
// decode is driven purely by the LM's unigram/bigram score.
var lmOnlyCRF = &CRF{}

// encodeRunes re-encodes a codepoint sequence back to UTF-8 bytes, the
// inverse of DecodeAll.
func encodeRunes(runes []rune) ([]byte, error) {
	out := make([]byte, 0, len(runes)*3)
	var buf [4]byte
	for _, r := range runes {
		enc, err := encodeRune(buf[:0], r)
		if err != nil {
			return nil, err
		}
		out = append(out, enc...)
	}
	return out, nil
}

// PseudoLabelSentence derives a supervised training Sentence from a
// raw, unsegmented codepoint sequence by self-training: decode with
// the LM term alone (CRF weights zeroed via lmOnlyCRF, so edgeWeight
// reduces to the unigram/bigram score), then label every resulting
// piece's first codepoint y=1 and the rest y=0. Falls back to labeling
// every codepoint as its own piece if the LM-only decode fails to
// cover the sentence.
func PseudoLabelSentence(w *WorkArea, m *Model, runes []rune) (Sentence, error) {
	classes := make([]uint8, len(runes))
	for i, r := range runes {
		classes[i] = m.Classifier.Classify(r)
	}
	labels := make([]uint8, len(runes))
	if len(runes) == 0 {
		return Sentence{Classes: classes, Labels: labels}, nil
	}

	b, err := encodeRunes(runes)
	if err != nil {
		return Sentence{}, err
	}
	lmOnly := *m
	lmOnly.CRF = lmOnlyCRF
	boundsByte, _, decErr := DecodeRetry(w, &lmOnly, b)
	if decErr != nil {
		for i := range labels {
			labels[i] = 1
		}
		return Sentence{Classes: classes, Labels: labels}, nil
	}

	offsets := w.Offsets[:len(runes)+1]
	for _, off := range boundsByte[:len(boundsByte)-1] {
		cp := sort.SearchInts(offsets, off)
		labels[cp] = 1
	}
	return Sentence{Classes: classes, Labels: labels}, nil
}

// BuildPseudoLabeledCorpus runs PseudoLabelSentence over every sentence
// in corpus, producing a self-trained supervised training set. m's CRF
// field is ignored; only LM/Trie/Classifier/MaxWordLenCP are used to
// drive the LM-only decode.
func BuildPseudoLabeledCorpus(w *WorkArea, m *Model, corpus [][]rune) ([]Sentence, error) {
	out := make([]Sentence, 0, len(corpus))
	for _, runes := range corpus {
		s, err := PseudoLabelSentence(w, m, runes)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// TrainableCRF holds CRF parameters as float64 during training,
// mirroring CRF's shape but keyed by a map for easy gradient
// accumulation on features seen so far.
type TrainableCRF struct {
	Trans00, Trans01, Trans10, Trans11 float64
	BOSTo1                             float64
	Feat                               map[uint32]float64
	L2                                 float64
}

// NewTrainableCRF creates a zero-initialized trainable CRF.
func NewTrainableCRF(l2 float64) *TrainableCRF {
	return &TrainableCRF{Feat: make(map[uint32]float64), L2: l2}
}

func classesAt(classes []uint8, i int) (prev, cur, next uint8) {
	if i > 0 {
		prev = classes[i-1]
	} else {
		prev = ClassBOS
	}
	cur = classes[i]
	if i+1 < len(classes) {
		next = classes[i+1]
	} else {
		next = ClassEOS
	}
	return
}

// emit sums the five feature templates for label lbl at position i.
func (c *TrainableCRF) emit(classes []uint8, i int, lbl uint8) float64 {
	prev, cur, next := classesAt(classes, i)
	sum := 0.0
	sum += c.Feat[FeatureKey(TemplateCur, lbl, cur, 0)]
	sum += c.Feat[FeatureKey(TemplatePrev, lbl, prev, 0)]
	sum += c.Feat[FeatureKey(TemplateNext, lbl, next, 0)]
	sum += c.Feat[FeatureKey(TemplatePrevCur, lbl, prev, cur)]
	sum += c.Feat[FeatureKey(TemplateCurNext, lbl, cur, next)]
	return sum
}

// fbTables holds the forward/backward tables and log-partition for one
// sentence, grounded on other_examples/baranylcn-dit__forward_backward.go's
// slice-indexed (not pointer-chased) DP shape.
type fbTables struct {
	alpha0, alpha1 []float64
	beta0, beta1   []float64
	logZ           float64
	e0, e1         []float64 // emissions, cached for gradient/backward reuse
}

// forwardBackward computes the standard linear-chain CRF forward-backward
// tables for classes under CRF c (two labels, 0 = word-internal,
// 1 = word-start).
func (c *TrainableCRF) forwardBackward(classes []uint8) *fbTables {
	n := len(classes)
	t := &fbTables{
		alpha0: make([]float64, n), alpha1: make([]float64, n),
		beta0: make([]float64, n), beta1: make([]float64, n),
		e0: make([]float64, n), e1: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		t.e0[i] = c.emit(classes, i, 0)
		t.e1[i] = c.emit(classes, i, 1)
	}

	t.alpha0[0] = math.Inf(-1)
	t.alpha1[0] = t.e1[0]
	for i := 1; i < n; i++ {
		t.alpha0[i] = t.e0[i] + logSumExp(t.alpha0[i-1]+c.Trans00, t.alpha1[i-1]+c.Trans10)
		t.alpha1[i] = t.e1[i] + logSumExp(t.alpha0[i-1]+c.Trans01, t.alpha1[i-1]+c.Trans11)
	}
	t.logZ = logSumExp(t.alpha0[n-1]+c.Trans01, t.alpha1[n-1]+c.Trans11)

	t.beta0[n-1] = c.Trans01
	t.beta1[n-1] = c.Trans11
	for i := n - 2; i >= 0; i-- {
		b0next := t.beta0[i+1] + t.e0[i+1]
		b1next := t.beta1[i+1] + t.e1[i+1]
		t.beta0[i] = logSumExp(c.Trans00+b0next, c.Trans01+b1next)
		t.beta1[i] = logSumExp(c.Trans10+b0next, c.Trans11+b1next)
	}
	return t
}

// marginal returns p(y_i = lbl) for the sentence described by tabs.
func marginal(tabs *fbTables, i int, lbl uint8) float64 {
	var a, b float64
	if lbl == 0 {
		a, b = tabs.alpha0[i], tabs.beta0[i]
	} else {
		a, b = tabs.alpha1[i], tabs.beta1[i]
	}
	return math.Exp(a + b - tabs.logZ)
}

// SentenceLogLik returns the sentence's log-likelihood (empirical score
// minus logZ) under the current weights.
func (c *TrainableCRF) SentenceLogLik(s Sentence) float64 {
	tabs := c.forwardBackward(s.Classes)
	n := len(s.Classes)
	score := 0.0
	for i, y := range s.Labels {
		if y == 0 {
			score += tabs.e0[i]
		} else {
			score += tabs.e1[i]
		}
		if i > 0 {
			prev := s.Labels[i-1]
			score += c.transWeight(prev, y)
		}
	}
	// implicit transition to the EOS label-1 state at the end.
	score += c.transWeight(s.Labels[n-1], 1)
	return score - tabs.logZ
}

func (c *TrainableCRF) transWeight(from, to uint8) float64 {
	switch {
	case from == 0 && to == 0:
		return c.Trans00
	case from == 0 && to == 1:
		return c.Trans01
	case from == 1 && to == 0:
		return c.Trans10
	default:
		return c.Trans11
	}
}

// grad accumulates empirical-minus-expected counts for one sentence
// into the running gradient gTrans (indexed Trans00,01,10,11) and
// gFeat (keyed like Feat), and returns the sentence's contribution to
// the (unregularized) log-likelihood.
//
// BOSTo1 is not trained here: every sentence starts at label 1 by
// construction (NewSentenceFromTokens forces Labels[0]=1), so the
// forward-backward recurrence never routes through a BOS transition,
// and the decoder only ever adds bos_to1 once as the fixed root score
// of the lattice DP's Viterbi recurrence, where it cancels across
// every candidate path and cannot be fit from labeled data.
func (c *TrainableCRF) grad(s Sentence, gTrans *[4]float64, gFeat map[uint32]float64) float64 {
	tabs := c.forwardBackward(s.Classes)
	n := len(s.Classes)

	// Empirical feature/transition counts.
	for i, y := range s.Labels {
		prev, cur, next := classesAt(s.Classes, i)
		keys := [5]uint32{
			FeatureKey(TemplateCur, y, cur, 0),
			FeatureKey(TemplatePrev, y, prev, 0),
			FeatureKey(TemplateNext, y, next, 0),
			FeatureKey(TemplatePrevCur, y, prev, cur),
			FeatureKey(TemplateCurNext, y, cur, next),
		}
		for _, k := range keys {
			gFeat[k] += 1
		}
		// Expected feature counts: marginal at this position times 1
		// for the (class-dependent) key under both labels.
		for lbl := uint8(0); lbl < 2; lbl++ {
			p := marginal(tabs, i, lbl)
			keysLbl := [5]uint32{
				FeatureKey(TemplateCur, lbl, cur, 0),
				FeatureKey(TemplatePrev, lbl, prev, 0),
				FeatureKey(TemplateNext, lbl, next, 0),
				FeatureKey(TemplatePrevCur, lbl, prev, cur),
				FeatureKey(TemplateCurNext, lbl, cur, next),
			}
			for _, k := range keysLbl {
				gFeat[k] -= p
			}
		}
		if i > 0 {
			prevY := s.Labels[i-1]
			gTrans[transIndex(prevY, y)] += 1
		}
	}
	gTrans[transIndex(s.Labels[n-1], 1)] += 1 // implicit EOS transition

	// Expected transition counts from the edge marginals
	// p(y_i=a, y_{i+1}=b) ∝ alpha_a[i] + trans(a,b) + e_b[i+1] + beta_b[i+1].
	for i := 0; i < n-1; i++ {
		for a := uint8(0); a < 2; a++ {
			for b := uint8(0); b < 2; b++ {
				aAlpha := tabs.alpha0[i]
				if a == 1 {
					aAlpha = tabs.alpha1[i]
				}
				bBeta := tabs.beta0[i+1]
				bE := tabs.e0[i+1]
				if b == 1 {
					bBeta = tabs.beta1[i+1]
					bE = tabs.e1[i+1]
				}
				logP := aAlpha + c.transWeight(a, b) + bE + bBeta - tabs.logZ
				gTrans[transIndex(a, b)] -= math.Exp(logP)
			}
		}
	}
	// Final implicit transition to EOS(=1) from the last position.
	for a := uint8(0); a < 2; a++ {
		aAlpha := tabs.alpha0[n-1]
		if a == 1 {
			aAlpha = tabs.alpha1[n-1]
		}
		logP := aAlpha + c.transWeight(a, 1) - tabs.logZ
		gTrans[transIndex(a, 1)] -= math.Exp(logP)
	}

	return c.SentenceLogLik(s)
}

func transIndex(from, to uint8) int {
	switch {
	case from == 0 && to == 0:
		return 0
	case from == 0 && to == 1:
		return 1
	case from == 1 && to == 0:
		return 2
	default:
		return 3
	}
}

// l2Penalty returns 0.5*lambda*||w||^2 over transitions and features.
func (c *TrainableCRF) l2Penalty() float64 {
	if c.L2 == 0 {
		return 0
	}
	sum := c.Trans00*c.Trans00 + c.Trans01*c.Trans01 + c.Trans10*c.Trans10 + c.Trans11*c.Trans11
	for _, w := range c.Feat {
		sum += w * w
	}
	return 0.5 * c.L2 * sum
}

// SGDConfig configures the plain-SGD driver.
type SGDConfig struct {
	Epochs int
	LR     float64
}

// TrainSGD runs cfg.Epochs epochs of plain SGD: accumulate the
// gradient over the whole dataset, divide by total positions, take a
// step of size LR/totalPos, logging per-epoch log-likelihood.
func (c *TrainableCRF) TrainSGD(data []Sentence, cfg SGDConfig) []float64 {
	var history []float64
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		var gTrans [4]float64
		gFeat := make(map[uint32]float64)
		var ll float64
		var totalPos int
		for _, s := range data {
			ll += c.grad(s, &gTrans, gFeat)
			totalPos += len(s.Classes)
		}
		pen := c.l2Penalty()
		loss := -(ll - pen)
		history = append(history, loss)
		if totalPos == 0 {
			continue
		}
		step := cfg.LR / float64(totalPos)
		c.applyStep(gTrans, gFeat, step)
		logging.Info("crf sgd epoch %d, loglik=%.3f loss=%.3f", epoch, ll, loss)
	}
	return history
}

// applyStep performs w += step*grad with L2 shrinkage: grad -= L2*w is
// folded in here rather than in grad(), since L2's gradient contribution
// is computed at apply time against the pre-update weights. BOSTo1 is
// left untouched; it is set directly by the caller (see TrainableCRF).
func (c *TrainableCRF) applyStep(gTrans [4]float64, gFeat map[uint32]float64, step float64) {
	c.Trans00 += step * (gTrans[0] - c.L2*c.Trans00)
	c.Trans01 += step * (gTrans[1] - c.L2*c.Trans01)
	c.Trans10 += step * (gTrans[2] - c.L2*c.Trans10)
	c.Trans11 += step * (gTrans[3] - c.L2*c.Trans11)
	for k, g := range gFeat {
		c.Feat[k] += step * (g - c.L2*c.Feat[k])
	}
}

// Export freezes the trainable CRF into an inference-ready Q8.8 CRF.
func (c *TrainableCRF) Export() *CRF {
	out := &CRF{
		Trans00: floatToQ88(c.Trans00),
		Trans01: floatToQ88(c.Trans01),
		Trans10: floatToQ88(c.Trans10),
		Trans11: floatToQ88(c.Trans11),
		BOSTo1:  floatToQ88(c.BOSTo1),
	}
	for k, w := range c.Feat {
		out.FeatKey = append(out.FeatKey, k)
		out.FeatWeight = append(out.FeatWeight, floatToQ88(w))
	}
	out.SortFeatures()
	return out
}
