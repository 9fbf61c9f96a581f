package mmjp

import "sort"

// Piece table: a byte-keyed dictionary generalized to variable-length
// UTF-8 pieces identified by a 16-bit PieceId.

// PieceID identifies a dictionary entry. Two values are reserved.
type PieceID = uint16

const (
	// PieceNone marks "no piece" (e.g. an unmatched span).
	PieceNone PieceID = 0xFFFF
	// PieceBOS is the virtual beginning-of-sentence piece id, used as
	// the "previous piece" in bigram lookups at position 0.
	PieceBOS PieceID = 0xFFFE
)

const (
	// PieceMandatory protects a piece from MDL pruning. Every
	// single-codepoint piece is implicitly mandatory regardless of
	// this bit (the coverage invariant).
	PieceMandatory uint8 = 1 << 0
)

// Piece is one dictionary entry: a byte string plus its length in
// bytes and codepoints, plus flags.
type Piece struct {
	Bytes []byte
	LenCP int
	Flags uint8
}

func (p *Piece) Mandatory() bool { return p.Flags&PieceMandatory != 0 }

// PieceTable owns the mutable piece storage during training: a string
// arena (so ids stay stable even as the struct grows) plus a parallel
// lookup from byte string to id.
type PieceTable struct {
	pieces  []Piece
	byBytes map[string]PieceID
}

// NewPieceTable creates an empty piece table.
func NewPieceTable() *PieceTable {
	return &PieceTable{byBytes: make(map[string]PieceID)}
}

// Len returns the current vocabulary size.
func (pt *PieceTable) Len() int { return len(pt.pieces) }

// Piece returns the piece stored at id.
func (pt *PieceTable) Piece(id PieceID) *Piece {
	if int(id) >= len(pt.pieces) {
		return nil
	}
	return &pt.pieces[id]
}

// Lookup returns the id of an existing piece with the given bytes.
func (pt *PieceTable) Lookup(b []byte) (PieceID, bool) {
	id, ok := pt.byBytes[string(b)]
	return id, ok
}

// Add inserts a new piece (or returns the existing id if already
// present) and, for single-codepoint pieces, forces PieceMandatory —
// the coverage invariant that MDL pruning must never violate.
func (pt *PieceTable) Add(b []byte, flags uint8) (PieceID, error) {
	if len(b) == 0 {
		return 0, newErr("PieceTable.Add", KindBadArg, "empty piece")
	}
	if id, ok := pt.byBytes[string(b)]; ok {
		pt.pieces[id].Flags |= flags
		return id, nil
	}
	if len(pt.pieces) >= 0xFFFE {
		return 0, newErr("PieceTable.Add", KindFull, "vocabulary exceeds 16-bit id space")
	}
	runes, err := DecodeAll(b)
	if err != nil {
		return 0, wrapErr("PieceTable.Add", KindInvalidUTF8, "piece is not valid UTF-8", err)
	}
	if len(runes) == 1 {
		flags |= PieceMandatory
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	id := PieceID(len(pt.pieces))
	pt.pieces = append(pt.pieces, Piece{Bytes: cp, LenCP: len(runes), Flags: flags})
	pt.byBytes[string(cp)] = id
	return id, nil
}

// Range calls fn for every piece in id order.
func (pt *PieceTable) Range(fn func(id PieceID, p *Piece)) {
	for i := range pt.pieces {
		fn(PieceID(i), &pt.pieces[i])
	}
}

// Compact rewrites the table in place keeping only the pieces whose id
// is in keep (a set of original ids), remapping ids to a dense
// sequence in dictionary order (lexicographic byte order, ties broken
// by original id) and returning the mapping from old id to new id
// (PieceNone if dropped).
func (pt *PieceTable) Compact(keep map[PieceID]bool) (remap []PieceID) {
	var kept []pieceSortEntry
	for id := range pt.pieces {
		oid := PieceID(id)
		if keep[oid] {
			kept = append(kept, pieceSortEntry{old: oid})
		}
	}
	sortEntries(kept, pt.pieces)

	remap = make([]PieceID, len(pt.pieces))
	for i := range remap {
		remap[i] = PieceNone
	}
	newPieces := make([]Piece, len(kept))
	newByBytes := make(map[string]PieceID, len(kept))
	for newID, e := range kept {
		newPieces[newID] = pt.pieces[e.old]
		newByBytes[string(newPieces[newID].Bytes)] = PieceID(newID)
		remap[e.old] = PieceID(newID)
	}
	pt.pieces = newPieces
	pt.byBytes = newByBytes
	return remap
}

type pieceSortEntry struct {
	old PieceID
}

// sortEntries sorts kept entries by (bytes lexicographic, then
// original id) via an explicit closure over the local pieces slice,
// deliberately not a package-level comparator holding a shared
// pointer, which would make Compact unsafe to call concurrently on
// different tables.
func sortEntries(kept []pieceSortEntry, pieces []Piece) {
	sort.Slice(kept, func(i, j int) bool {
		a, b := pieces[kept[i].old].Bytes, pieces[kept[j].old].Bytes
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return kept[i].old < kept[j].old
	})
}
