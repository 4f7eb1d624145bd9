package islx

import "testing"

func TestParseSetSingleConjunct(t *testing.T) {
	us, err := ParseSet("[N] -> { S[i] : 0 <= i and i < N }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if len(us.Pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(us.Pieces))
	}
	p := us.Pieces[0]
	if len(p.Dims) != 1 || p.Dims[0] != "i" {
		t.Fatalf("unexpected Dims: %v", p.Dims)
	}
	if len(p.Params) != 1 || p.Params[0] != "N" {
		t.Fatalf("unexpected Params: %v", p.Params)
	}
	if len(p.Ineqs) != 2 {
		t.Fatalf("expected 2 inequalities (i >= 0, N - i - 1 >= 0), got %d: %+v", len(p.Ineqs), p.Ineqs)
	}
}

func TestParseSetSplitsTopLevelDisjunction(t *testing.T) {
	us, err := ParseSet("{ S[i] : i = 0 or i = 1 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if len(us.Pieces) != 2 {
		t.Fatalf("expected 2 disjuncts, got %d", len(us.Pieces))
	}
}

func TestParseSetRejectsMapLiteral(t *testing.T) {
	if _, err := ParseSet("{ A[i] -> B[i] }"); err == nil {
		t.Fatalf("expected ParseSet to reject a map literal")
	}
}

func TestParseMapBasic(t *testing.T) {
	um, err := ParseMap("{ A[i] -> B[i, j] : 0 <= j and j < 4 }")
	if err != nil {
		t.Fatalf("ParseMap returned error: %v", err)
	}
	if len(um.Pieces) != 1 {
		t.Fatalf("expected 1 piece, got %d", len(um.Pieces))
	}
	p := um.Pieces[0]
	if len(p.InDims) != 1 || p.InDims[0] != "i" {
		t.Fatalf("unexpected InDims: %v", p.InDims)
	}
	if len(p.OutDims) != 2 || p.OutDims[0] != "i" || p.OutDims[1] != "j" {
		t.Fatalf("unexpected OutDims: %v", p.OutDims)
	}
}

func TestParseMapRejectsSetLiteral(t *testing.T) {
	if _, err := ParseMap("{ A[i] : i >= 0 }"); err == nil {
		t.Fatalf("expected ParseMap to reject a set literal")
	}
}

func TestBasicSetIsEmpty(t *testing.T) {
	nonEmpty, err := ParseSet("{ S[i] : 0 <= i and i < 10 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if nonEmpty.Pieces[0].IsEmpty() {
		t.Fatalf("expected 0 <= i < 10 to be non-empty")
	}

	empty, err := ParseSet("{ S[i] : i < 0 and i >= 0 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if !empty.Pieces[0].IsEmpty() {
		t.Fatalf("expected the contradictory set to be empty")
	}
}

func TestBasicSetSubsetAndEqual(t *testing.T) {
	wide, err := ParseSet("{ S[i] : 0 <= i and i < 10 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	narrow, err := ParseSet("{ S[i] : 2 <= i and i < 5 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if !narrow.Pieces[0].Subset(wide.Pieces[0]) {
		t.Fatalf("expected [2,5) to be a subset of [0,10)")
	}
	if wide.Pieces[0].Subset(narrow.Pieces[0]) {
		t.Fatalf("did not expect [0,10) to be a subset of [2,5)")
	}
	if wide.Pieces[0].Equal(narrow.Pieces[0]) {
		t.Fatalf("did not expect [0,10) to equal [2,5)")
	}

	same, err := ParseSet("{ S[i] : 0 <= i and i <= 9 }")
	if err != nil {
		t.Fatalf("ParseSet returned error: %v", err)
	}
	if !wide.Pieces[0].Equal(same.Pieces[0]) {
		t.Fatalf("expected 0 <= i < 10 to equal 0 <= i <= 9")
	}
}

func TestBasicMapRenameAndReverse(t *testing.T) {
	um, err := ParseMap("{ A[i] -> B[i] }")
	if err != nil {
		t.Fatalf("ParseMap returned error: %v", err)
	}
	m := um.Pieces[0]
	renamed := m.Rename(map[string]string{"i": "src$i"})
	if renamed.InDims[0] != "src$i" || renamed.OutDims[0] != "src$i" {
		t.Fatalf("Rename did not update both tuples: %+v", renamed)
	}

	rev := m.Reverse()
	if len(rev.InDims) != len(m.OutDims) || rev.InDims[0] != m.OutDims[0] {
		t.Fatalf("Reverse did not swap InDims/OutDims: %+v", rev)
	}
	if len(rev.OutDims) != len(m.InDims) || rev.OutDims[0] != m.InDims[0] {
		t.Fatalf("Reverse did not swap InDims/OutDims: %+v", rev)
	}
}

func TestComposeRequiresMatchingDims(t *testing.T) {
	ab, _ := ParseMap("{ A[i] -> B[i] }")
	bc, _ := ParseMap("{ B[i] -> C[i] }")
	ac, err := Compose(ab.Pieces[0], bc.Pieces[0])
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if ac.InDims[0] != "i" || ac.OutDims[0] != "i" {
		t.Fatalf("unexpected Compose result: %+v", ac)
	}

	mismatched, _ := ParseMap("{ B[j] -> C[j] }")
	if _, err := Compose(ab.Pieces[0], mismatched.Pieces[0]); err == nil {
		t.Fatalf("expected Compose to reject mismatched shared-tuple names")
	}
}

func TestLexLessOrdersByFirstDifferingDim(t *testing.T) {
	lex := LexLess(nil, []string{"x0", "x1"}, []string{"y0", "y1"})
	if len(lex.Pieces) != 2 {
		t.Fatalf("expected 2 pieces (one per prefix length), got %d", len(lex.Pieces))
	}
	// piece 0: y0 - x0 - 1 >= 0, no equalities.
	p0 := lex.Pieces[0]
	if len(p0.Eqs) != 0 {
		t.Fatalf("expected the first piece to carry no equality prefix, got %+v", p0.Eqs)
	}
	if len(p0.Ineqs) != 1 || p0.Ineqs[0].Coeffs["y0"] != 1 || p0.Ineqs[0].Coeffs["x0"] != -1 {
		t.Fatalf("unexpected first-piece inequality: %+v", p0.Ineqs)
	}
	// piece 1: x0 == y0, then y1 - x1 - 1 >= 0.
	p1 := lex.Pieces[1]
	if len(p1.Eqs) != 1 || p1.Eqs[0].Coeffs["x0"] != 1 || p1.Eqs[0].Coeffs["y0"] != -1 {
		t.Fatalf("unexpected second-piece equality prefix: %+v", p1.Eqs)
	}
}
