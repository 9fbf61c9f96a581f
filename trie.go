package mmjp

// Double-array trie: a compact deterministic automaton stored as two
// parallel arrays, Base and Check, the classic Aoe double-array
// representation.
//
// Keys are non-empty byte strings. Key termination is a transition by
// byte 0 into a terminal node whose Base holds -(id+1); a non-negative
// Base at a terminal slot is a read-back error.

const trieRoot = 1

// Trie is a mutable, growable double-array trie used during training.
type Trie struct {
	base  []int32
	check []int32
	// dynamic controls whether reserve is allowed to grow the arrays.
	// A Trie built over a caller-provided static buffer sets this
	// false and returns KindFull instead of growing.
	dynamic bool
}

// NewTrie creates a dynamically-growable trie with the given initial
// capacity (minimum 16, per the C original's da_trie_init_dynamic).
func NewTrie(initialCapacity int) *Trie {
	if initialCapacity < 16 {
		initialCapacity = 16
	}
	t := &Trie{
		base:    make([]int32, initialCapacity),
		check:   make([]int32, initialCapacity),
		dynamic: true,
	}
	t.clear()
	return t
}

// NewStaticTrie wraps caller-provided base/check buffers; insertion
// fails with KindFull once both are exhausted instead of growing them.
func NewStaticTrie(base, check []int32) (*Trie, error) {
	if len(base) != len(check) || len(base) < 16 {
		return nil, newErr("NewStaticTrie", KindBadArg, "base/check must be equal length and at least 16")
	}
	t := &Trie{base: base, check: check, dynamic: false}
	t.clear()
	return t, nil
}

func (t *Trie) clear() {
	for i := range t.base {
		t.base[i] = 0
		t.check[i] = 0
	}
	t.base[trieRoot] = 1
	t.check[trieRoot] = trieRoot
}

// Clear resets the trie to empty while keeping the underlying arrays.
func (t *Trie) Clear() { t.clear() }

// Capacity returns the current size of the base/check arrays.
func (t *Trie) Capacity() int { return len(t.base) }

// reserve ensures the arrays can address index `need-1`, growing by
// doubling (dynamic mode) as an all-or-nothing transaction: both new
// arrays are allocated and populated before either old array is
// dropped, so a failed allocation never leaves the trie inconsistent.
func (t *Trie) reserve(need int) error {
	if need <= len(t.base) {
		return nil
	}
	if !t.dynamic {
		return newErr("Trie.reserve", KindFull, "static capacity exhausted")
	}
	newCap := len(t.base)
	if newCap == 0 {
		newCap = 256
	}
	for newCap < need {
		newCap *= 2
	}
	nb := make([]int32, newCap)
	nc := make([]int32, newCap)
	copy(nb, t.base)
	copy(nc, t.check)
	t.base = nb
	t.check = nc
	return nil
}

// next returns the state reached from cur by byte code, or 0 if no
// such transition exists. A transition landing back on cur itself is
// rejected outright: base[cur]+code == cur can only arise from a
// corrupt or adversarial array, never from a correctly built trie, and
// accepting it would turn Step into an infinite self-loop.
func (t *Trie) next(cur int32, code byte) int32 {
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

// collectChildCodes gathers the existing child bytes of parent.
func (t *Trie) collectChildCodes(parent int32) []byte {
	b := t.base[parent]
	if b <= 0 {
		return nil
	}
	var codes []byte
	for c := 0; c < 256; c++ {
		idx := int64(b) + int64(c)
		if idx == int64(parent) {
			continue
		}
		if idx < int64(len(t.base)) && t.check[idx] == parent {
			codes = append(codes, byte(c))
		}
	}
	return codes
}

func containsCode(codes []byte, c byte) bool {
	for _, v := range codes {
		if v == c {
			return true
		}
	}
	return false
}

// findBase searches, starting from base candidate 1, for a base b such
// that every slot b+codes[i] is either free or already owned by
// parent, and b+codes[i] != parent for all i. Matches the C original's
// linear scan order (low bases preferred, for compact export arrays).
func (t *Trie) findBase(parent int32, codes []byte) (int32, error) {
	if len(codes) == 0 {
		return 0, newErr("Trie.findBase", KindBadArg, "no codes to place")
	}
	var maxc byte
	for _, c := range codes {
		if c > maxc {
			maxc = c
		}
	}
	for b := int32(1); ; b++ {
		need := int(b) + int(maxc) + 1
		if err := t.reserve(need); err != nil {
			return 0, err
		}
		ok := true
		for _, c := range codes {
			idx := int64(b) + int64(c)
			if idx == int64(parent) {
				ok = false
				break
			}
			chk := t.check[idx]
			if chk != 0 && chk != parent {
				ok = false
				break
			}
		}
		if ok {
			return b, nil
		}
		if b == 1<<30 {
			return 0, newErr("Trie.findBase", KindFull, "no base found within addressable range")
		}
	}
}

// relocateChildren moves every existing child of parent from its old
// base to newBase, using the two-pass negated-sentinel discipline
// required when the destination range overlaps the source range: a
// grandchild's check pointer is first marked -newChild for every
// moved child, then a second pass flips negated entries back positive.
// This prevents one child's relocation from chain-updating another
// already-relocated child's grandchildren.
func (t *Trie) relocateChildren(parent, newBase int32) error {
	codes := t.collectChildCodes(parent)
	oldBase := t.base[parent]

	oldIdx := make([]int32, len(codes))
	newIdx := make([]int32, len(codes))
	childBase := make([]int32, len(codes))

	for i, c := range codes {
		o := int64(oldBase) + int64(c)
		n := int64(newBase) + int64(c)
		if err := t.reserve(int(n) + 1); err != nil {
			return err
		}
		oldIdx[i] = int32(o)
		newIdx[i] = int32(n)
		childBase[i] = t.base[o]
	}

	for _, o := range oldIdx {
		t.base[o] = 0
		t.check[o] = 0
	}
	for i, n := range newIdx {
		t.check[n] = parent
		t.base[n] = childBase[i]
	}

	// Pass 1: mark grandchildren pointing at each moved old child with
	// the negated new child index.
	for i := range codes {
		b := childBase[i]
		if b <= 0 {
			continue
		}
		oldChild := oldIdx[i]
		newChild := newIdx[i]
		for c := 0; c < 256; c++ {
			g := int64(b) + int64(c)
			if g < int64(len(t.check)) && t.check[g] == oldChild {
				t.check[g] = -newChild
			}
		}
	}
	// Pass 2: flip negated sentinels back to the positive new index.
	for i := range codes {
		b := childBase[i]
		if b <= 0 {
			continue
		}
		newChild := newIdx[i]
		neg := -newChild
		for c := 0; c < 256; c++ {
			g := int64(b) + int64(c)
			if g < int64(len(t.check)) && t.check[g] == neg {
				t.check[g] = newChild
			}
		}
	}

	t.base[parent] = newBase
	return nil
}

// ensureTransition guarantees parent -code-> exists, growing/relocating
// as needed, and returns the resulting node.
func (t *Trie) ensureTransition(parent int32, code byte) (int32, error) {
	if parent <= 0 || int(parent) >= len(t.base) {
		return 0, newErr("Trie.ensureTransition", KindBadArg, "invalid parent node")
	}
	b := t.base[parent]
	if b <= 0 {
		newBase, err := t.findBase(parent, []byte{code})
		if err != nil {
			return 0, err
		}
		t.base[parent] = newBase
		b = newBase
	}

	idx := int64(b) + int64(code)
	if err := t.reserve(int(idx) + 1); err != nil {
		return 0, err
	}
	chk := t.check[idx]
	if chk == parent {
		return int32(idx), nil
	}
	if chk == 0 {
		t.check[idx] = parent
		t.base[idx] = 0
		return int32(idx), nil
	}

	// Collision: relocate parent's existing children (plus the new
	// code) to a base that fits the whole set without foreign
	// overlap.
	codes := t.collectChildCodes(parent)
	if !containsCode(codes, code) {
		codes = append(codes, code)
	}
	newBase, err := t.findBase(parent, codes)
	if err != nil {
		return 0, err
	}
	if err := t.relocateChildren(parent, newBase); err != nil {
		return 0, err
	}

	idx = int64(newBase) + int64(code)
	if err := t.reserve(int(idx) + 1); err != nil {
		return 0, err
	}
	if t.check[idx] != 0 {
		return 0, newErr("Trie.ensureTransition", KindInternal, "slot occupied after relocation")
	}
	t.check[idx] = parent
	t.base[idx] = 0
	return int32(idx), nil
}

// AddBytes inserts a non-empty key, terminated by an implicit byte-0
// transition. Idempotent: inserting the same key twice is a no-op
// beyond the second call's redundant traversal.
func (t *Trie) AddBytes(key []byte) error {
	if len(key) == 0 {
		return newErr("Trie.AddBytes", KindBadArg, "empty key not accepted")
	}
	cur := int32(trieRoot)
	for _, c := range key {
		next, err := t.ensureTransition(cur, c)
		if err != nil {
			return err
		}
		cur = next
	}
	if _, err := t.ensureTransition(cur, 0); err != nil {
		return err
	}
	return nil
}

// ContainsBytes reports whether key was previously added.
func (t *Trie) ContainsBytes(key []byte) bool {
	cur := int32(trieRoot)
	for _, c := range key {
		cur = t.next(cur, c)
		if cur == 0 {
			return false
		}
	}
	return t.next(cur, 0) != 0
}

// SearchPrefixBytes returns the node reached after consuming key, or 0
// if no such path exists (key need not be a complete entry).
func (t *Trie) SearchPrefixBytes(key []byte) int32 {
	cur := int32(trieRoot)
	for _, c := range key {
		cur = t.next(cur, c)
		if cur == 0 {
			return 0
		}
	}
	return cur
}

// Step transitions from state cur by byte code, returning the next
// state or 0. Exposed for callers (e.g. the decoder's span-table
// precomputation) that walk the trie byte-by-byte themselves.
func (t *Trie) Step(cur int32, code byte) int32 { return t.next(cur, code) }

// Terminal checks whether state n is a terminal node (reached via a
// byte-0 transition) and, if so, returns its encoded piece id.
func (t *Trie) Terminal(n int32) (id uint16, ok bool) {
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

// SetTerminalValue records id at the terminal node reached from n by
// byte 0, encoding it as the negated value -(id+1). The byte-0
// transition must already exist (created by AddBytes).
func (t *Trie) SetTerminalValue(n int32, id uint16) error {
	term := t.next(n, 0)
	if term == 0 {
		return newErr("Trie.SetTerminalValue", KindBadArg, "no terminal transition at node")
	}
	t.base[term] = -(int32(id) + 1)
	return nil
}

// RO returns an immutable read-only view sharing the same backing
// arrays, for export/inference use.
func (t *Trie) RO() *TrieRO {
	return &TrieRO{base: t.base, check: t.check}
}

// TrieStats summarizes a trie's occupancy for training-time diagnostics.
type TrieStats struct {
	Nodes      int     // occupied check slots, excluding the root
	Capacity   int     // len(base)
	LoadFactor float64 // Nodes / Capacity
}

// Stats reports t's current node count and load factor, for
// training-time occupancy logging.
func (t *Trie) Stats() TrieStats {
	nodes := 0
	for i := range t.check {
		if i == trieRoot {
			continue
		}
		if t.check[i] != 0 {
			nodes++
		}
	}
	cap := len(t.base)
	return TrieStats{Nodes: nodes, Capacity: cap, LoadFactor: float64(nodes) / float64(cap)}
}

// Snapshot copies the live base/check arrays, trimmed to the highest
// occupied index plus one, for compact serialization.
func (t *Trie) Snapshot() (base, check []int32) {
	hi := trieRoot
	for i := len(t.base) - 1; i > trieRoot; i-- {
		if t.check[i] != 0 {
			hi = i
			break
		}
	}
	base = make([]int32, hi+1)
	check = make([]int32, hi+1)
	copy(base, t.base[:hi+1])
	copy(check, t.check[:hi+1])
	return base, check
}
