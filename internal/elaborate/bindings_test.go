package elaborate_test

import (
	"testing"

	"github.com/mdl-lang/mdlc/internal/elaborate"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/parser"
)

func parseFormula(t *testing.T, line string) *parser.Instruction {
	t.Helper()
	in, err := parser.Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return in
}

func TestExpandIteratorsSimple(t *testing.T) {
	in := parseFormula(t, "A[c] = 1, c in 01 02 03")
	tuples, err := elaborate.ExpandIterators(in.Formula, nil)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 3 {
		t.Fatalf("got %d tuples, want 3", len(tuples))
	}
	if v, ok := tuples[0].Var("c"); !ok || v != "01" {
		t.Fatalf("tuple 0: got %q", v)
	}
	if p, ok := tuples[2].Counter("c"); !ok || p != 3 {
		t.Fatalf("tuple 2 counter: got %d", p)
	}
}

func TestExpandIteratorsExclusionRenumbersCounter(t *testing.T) {
	in := parseFormula(t, "A[c] = 1, c in 01 02 03 \\ 02")
	tuples, err := elaborate.ExpandIterators(in.Formula, nil)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("got %d tuples, want 2", len(tuples))
	}
	v0, _ := tuples[0].Var("c")
	v1, _ := tuples[1].Var("c")
	if v0 != "01" || v1 != "03" {
		t.Fatalf("unexpected surviving items: %q %q", v0, v1)
	}
	if p, _ := tuples[1].Counter("c"); p != 2 {
		t.Fatalf("excluded item should not consume a counter slot, got %d", p)
	}
}

func TestExpandIteratorsCartesianAcrossClauses(t *testing.T) {
	in := parseFormula(t, "A[c,s] = 1, c in 01 02, s in X Y Z")
	tuples, err := elaborate.ExpandIterators(in.Formula, nil)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 6 {
		t.Fatalf("got %d tuples, want 6 (2x3 cartesian product)", len(tuples))
	}
}

func TestExpandIteratorsCompositeZipsNotCrosses(t *testing.T) {
	in := parseFormula(t, "A[c,s] = 1, (c,s) in (01 02, X Y)")
	tuples, err := elaborate.ExpandIterators(in.Formula, nil)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 2 {
		t.Fatalf("got %d tuples, want 2 (zipped, not crossed)", len(tuples))
	}
	c, _ := tuples[0].Var("c")
	s, _ := tuples[0].Var("s")
	if c != "01" || s != "X" {
		t.Fatalf("expected zipped pairing 01/X, got %s/%s", c, s)
	}
}

func TestExpandIteratorsMismatchedCompositeLengths(t *testing.T) {
	in := parseFormula(t, "A[c,s] = 1, (c,s) in (01 02 03, X Y)")
	_, err := elaborate.ExpandIterators(in.Formula, nil)
	if err == nil {
		t.Fatal("expected a mismatched-length error")
	}
}

func TestRealizeIdentifierPlaceholder(t *testing.T) {
	in := parseFormula(t, "A|c| = 1, c in 01")
	tuples, err := elaborate.ExpandIterators(in.Formula, nil)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	lhs := in.Formula.Children[1].Children[0].Children[0] // equation.lhs(expr).identifier
	name, err := elaborate.RealizeIdentifier(lhs, tuples[0])
	if err != nil {
		t.Fatalf("RealizeIdentifier: %v", err)
	}
	if name != "A01" {
		t.Fatalf("got %q, want A01", name)
	}
}

func TestRealizeIdentifierUnboundPlaceholder(t *testing.T) {
	in := parseFormula(t, "A|c| = 1")
	tuples, _ := elaborate.ExpandIterators(in.Formula, nil)
	lhs := in.Formula.Children[1].Children[0].Children[0]
	_, err := elaborate.RealizeIdentifier(lhs, tuples[0])
	if err == nil {
		t.Fatal("expected an unbound placeholder error")
	}
}

func TestExpandIteratorsResolvesNamedListFromHeap(t *testing.T) {
	h := heap.New()
	h.SetList("COM", heap.List{"01", "02", "03"})

	in := parseFormula(t, "A[c] = 1, c in COM")
	tuples, err := elaborate.ExpandIterators(in.Formula, h)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 3 {
		t.Fatalf("got %d tuples, want 3 (one per COM entry)", len(tuples))
	}
	v0, _ := tuples[0].Var("c")
	v2, _ := tuples[2].Var("c")
	if v0 != "01" || v2 != "03" {
		t.Fatalf("expected iterator to range over COM's contents, got %q/%q", v0, v2)
	}
}

func TestExpandIteratorsLiteralSingleWordListUnaffectedByUnrelatedHeapEntries(t *testing.T) {
	h := heap.New()
	h.SetList("OTHER", heap.List{"X", "Y"})

	in := parseFormula(t, "A[c] = 1, c in 01")
	tuples, err := elaborate.ExpandIterators(in.Formula, h)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	if len(tuples) != 1 {
		t.Fatalf("got %d tuples, want 1 (literal one-element list)", len(tuples))
	}
	v, _ := tuples[0].Var("c")
	if v != "01" {
		t.Fatalf("got %q, want 01", v)
	}
}
