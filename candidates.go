package mmjp

import "sort"

// Candidate extraction: top-K n-gram mining over a corpus sample,
// implemented as a direct sort-based miner rather than a true suffix
// array — a sort over starting positions gives the same ranked output
// at a simpler implementation cost.

// badCandidateByte reports whether b is one of the structural bytes
// that disqualify a candidate n-gram outright.
func badCandidateByte(b byte) bool {
	switch b {
	case 0x00, '\n', '\r', '\t', ' ':
		return true
	}
	return false
}

// ngramCount pairs a byte-string n-gram with its occurrence count.
type ngramCount struct {
	bytes []byte
	count int
}

// ExtractCandidates mines top-K n-gram candidates of codepoint length
// in [2, maxLenCP] from corpus, rejecting any n-gram containing a
// structural bad byte or the classifier's OTHER fallback at any
// codepoint, and returns up to total candidates ranked by frequency.
//
// isFallback reports whether cp would classify as the configured
// fallback class, disqualifying the candidate it appears in; callers
// typically pass a closure over their Classifier checking
// Classify(cp) == ClassOther.
func ExtractCandidates(corpus [][]rune, maxLenCP, total int, isFallback func(rune) bool) ([][]byte, error) {
	if maxLenCP < 2 || total <= 0 {
		return nil, newErr("ExtractCandidates", KindBadArg, "maxLenCP must be >= 2 and total > 0")
	}
	buckets := maxLenCP - 1
	perBucket := total / buckets
	if perBucket == 0 {
		perBucket = 1
	}

	var allKept []ngramCount
	for n := 2; n <= maxLenCP; n++ {
		counts := countNgrams(corpus, n, isFallback)
		top := topByCount(counts, perBucket)
		allKept = append(allKept, top...)
	}

	sort.SliceStable(allKept, func(i, j int) bool { return allKept[i].count > allKept[j].count })
	if len(allKept) > total {
		allKept = allKept[:total]
	}
	out := make([][]byte, len(allKept))
	for i, e := range allKept {
		out[i] = e.bytes
	}
	return out, nil
}

// countNgrams scans every sentence in corpus for codepoint-length-n
// windows, skipping any window starting on ASCII punctuation/space,
// and tallies occurrence counts keyed by the window's UTF-8 encoding.
func countNgrams(corpus [][]rune, n int, isFallback func(rune) bool) map[string]int {
	counts := make(map[string]int)
	for _, runes := range corpus {
		for i := 0; i+n <= len(runes); i++ {
			if startSkip(runes[i]) {
				continue
			}
			window := runes[i : i+n]
			enc, ok := encodeWindow(window, isFallback)
			if !ok {
				continue
			}
			counts[string(enc)]++
		}
	}
	return counts
}

// startSkip reports whether a candidate window may not begin at cp:
// ASCII punctuation/space starts are skipped the way a suffix array
// restricted to "interesting" suffixes would skip them.
func startSkip(cp rune) bool {
	if cp > 0x7F {
		return false
	}
	switch {
	case cp >= '0' && cp <= '9', (cp >= 'a' && cp <= 'z'), (cp >= 'A' && cp <= 'Z'):
		return false
	}
	return true
}

// encodeWindow encodes window to UTF-8, rejecting it if any codepoint
// is a structural bad byte's source or the fallback class.
func encodeWindow(window []rune, isFallback func(rune) bool) ([]byte, bool) {
	var buf []byte
	for _, cp := range window {
		if isFallback != nil && isFallback(cp) {
			return nil, false
		}
		enc, err := encodeRune(nil, cp)
		if err != nil {
			return nil, false
		}
		for _, b := range enc {
			if badCandidateByte(b) {
				return nil, false
			}
		}
		buf = append(buf, enc...)
	}
	return buf, true
}

// topByCount returns the k highest-count entries of counts, using a
// plain sort rather than a min-heap since candidate vocabularies at
// this stage are small relative to the corpus itself.
func topByCount(counts map[string]int, k int) []ngramCount {
	entries := make([]ngramCount, 0, len(counts))
	for s, c := range counts {
		entries = append(entries, ngramCount{bytes: []byte(s), count: c})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].count > entries[j].count })
	if len(entries) > k {
		entries = entries[:k]
	}
	return entries
}
