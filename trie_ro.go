package mmjp

// TrieRO is an immutable read-only double-array trie view, suitable
// for a frozen exported model (possibly backed by a read-only arena).
// It shares the Base/Check naming of npillmayer-hyphenate/dat's frozen
// double array.
type TrieRO struct {
	base  []int32
	check []int32
}

// NewTrieRO wraps externally-owned base/check slices (e.g. freshly
// read from a model file) as a read-only view.
func NewTrieRO(base, check []int32) (*TrieRO, error) {
	if len(base) != len(check) || len(base) <= trieRoot {
		return nil, newErr("NewTrieRO", KindBadArg, "base/check must be equal length and cover the root")
	}
	return &TrieRO{base: base, check: check}, nil
}

func (t *TrieRO) next(cur int32, code byte) int32 {
	if cur <= 0 || int(cur) >= len(t.base) {
		return 0
	}
	b := t.base[cur]
	if b <= 0 {
		return 0
	}
	idx := int64(b) + int64(code)
	if idx >= int64(len(t.base)) {
		return 0
	}
	if idx == int64(cur) {
		return 0
	}
	if t.check[idx] == cur {
		return int32(idx)
	}
	return 0
}

// Step transitions from state cur by byte code, returning the next
// state or 0.
func (t *TrieRO) Step(cur int32, code byte) int32 { return t.next(cur, code) }

// Root returns the trie's root state.
func (t *TrieRO) Root() int32 { return trieRoot }

// ContainsBytes reports whether key is a complete entry.
func (t *TrieRO) ContainsBytes(key []byte) bool {
	cur := int32(trieRoot)
	for _, c := range key {
		cur = t.next(cur, c)
		if cur == 0 {
			return false
		}
	}
	return t.next(cur, 0) != 0
}

// SearchPrefixBytes returns the node reached after consuming key, or 0.
func (t *TrieRO) SearchPrefixBytes(key []byte) int32 {
	cur := int32(trieRoot)
	for _, c := range key {
		cur = t.next(cur, c)
		if cur == 0 {
			return 0
		}
	}
	return cur
}

// Terminal returns the piece id encoded at state n's byte-0 transition,
// if any. A non-negative Base at the terminal slot is treated as "not
// terminal" and rejected on read-back.
func (t *TrieRO) Terminal(n int32) (id uint16, ok bool) {
	term := t.next(n, 0)
	if term == 0 {
		return 0, false
	}
	b := t.base[term]
	if b >= 0 {
		return 0, false
	}
	return uint16(-b - 1), true
}

// Capacity returns the size of the backing arrays.
func (t *TrieRO) Capacity() int { return len(t.base) }

// Arrays exposes the backing Base/Check slices for serialization.
func (t *TrieRO) Arrays() (base, check []int32) { return t.base, t.check }
