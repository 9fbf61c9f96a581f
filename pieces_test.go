package mmjp

import "testing"

func TestPieceTableAddAndLookup(t *testing.T) {
	pt := NewPieceTable()
	id1, err := pt.Add([]byte("foo"), 0)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	id2, err := pt.Add([]byte("foo"), PieceMandatory)
	if err != nil {
		t.Fatalf("Add (repeat): %v", err)
	}
	if id1 != id2 {
		t.Fatalf("re-adding the same bytes should return the same id: %d != %d", id1, id2)
	}
	if !pt.Piece(id1).Mandatory() {
		t.Fatal("re-adding with PieceMandatory should OR the flag into the existing piece")
	}
	got, ok := pt.Lookup([]byte("foo"))
	if !ok || got != id1 {
		t.Fatalf("Lookup(foo) = (%d,%v), want (%d,true)", got, ok, id1)
	}
}

func TestPieceTableSingleCodepointAlwaysMandatory(t *testing.T) {
	pt := NewPieceTable()
	id, err := pt.Add([]byte("中"), 0)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !pt.Piece(id).Mandatory() {
		t.Fatal("single-codepoint pieces must be mandatory regardless of requested flags")
	}
}

func TestPieceTableRejectsEmptyAndInvalidUTF8(t *testing.T) {
	pt := NewPieceTable()
	if _, err := pt.Add(nil, 0); ErrorKind(err) != KindBadArg {
		t.Fatalf("expected KindBadArg for empty piece, got %v", err)
	}
	if _, err := pt.Add([]byte{0xFF}, 0); ErrorKind(err) != KindInvalidUTF8 {
		t.Fatalf("expected KindInvalidUTF8, got %v", err)
	}
}

func TestPieceTableCompactRemapsAndDrops(t *testing.T) {
	pt := NewPieceTable()
	idFoo, _ := pt.Add([]byte("foo"), 0)
	idBar, _ := pt.Add([]byte("bar"), 0)
	idBaz, _ := pt.Add([]byte("baz"), 0)

	keep := map[PieceID]bool{idFoo: true, idBaz: true}
	remap := pt.Compact(keep)

	if remap[idBar] != PieceNone {
		t.Fatalf("dropped piece should remap to PieceNone, got %d", remap[idBar])
	}
	if remap[idFoo] == PieceNone || remap[idBaz] == PieceNone {
		t.Fatal("kept pieces should not remap to PieceNone")
	}
	if pt.Len() != 2 {
		t.Fatalf("Len() = %d after compacting to 2 pieces, want 2", pt.Len())
	}
	// bar < baz < foo lexicographically.
	if _, ok := pt.Lookup([]byte("bar")); ok {
		t.Fatal("bar should no longer be present after compaction")
	}
	bazID, ok := pt.Lookup([]byte("baz"))
	if !ok {
		t.Fatal("baz should still be present")
	}
	fooID, ok := pt.Lookup([]byte("foo"))
	if !ok {
		t.Fatal("foo should still be present")
	}
	if bazID >= fooID {
		t.Fatalf("expected lexicographic ordering baz < foo, got baz=%d foo=%d", bazID, fooID)
	}
}
