package mmjp

// Model is the frozen, immutable bundle produced by training and
// consumed by the decoder: a CRF, a unigram/bigram LM, a read-only
// trie over the LM vocabulary, and the character classifier used to
// derive CRF features at decode time. Trained once, then shared
// read-only across any number of decode calls.
type Model struct {
	CRF        *CRF
	LM         *UnigramLM
	Trie       *TrieRO
	Classifier *Classifier

	MaxWordLenCP int   // L
	Lambda0      int16 // Q8.8 weight blending the bigram term into the segment score
	LosslessWS   bool
}

// classesAround resolves (prev,cur,next) classes for codepoint i of
// runes, substituting BOS/EOS at the sentence edges.
func (m *Model) classesAround(runes []rune, i int) (prev, cur, next uint8) {
	if i > 0 {
		prev = m.Classifier.Classify(runes[i-1])
	} else {
		prev = ClassBOS
	}
	cur = m.Classifier.Classify(runes[i])
	if i+1 < len(runes) {
		next = m.Classifier.Classify(runes[i+1])
	} else {
		next = ClassEOS
	}
	return
}
