package generate

import (
	"testing"

	"github.com/mdl-lang/mdlc/internal/elaborate"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/parser"
)

func evalConditionLine(t *testing.T, line string, h *heap.Heap) bool {
	t.Helper()
	in, err := parser.Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	formula := in.Formula
	condition := formula.Children[2]
	tuples, err := elaborate.ExpandIterators(formula, h)
	if err != nil {
		t.Fatalf("ExpandIterators: %v", err)
	}
	ok, err := evalCondition(condition.Children[0], tuples[0], h)
	if err != nil {
		t.Fatalf("evalCondition: %v", err)
	}
	return ok
}

func TestEvalConditionArithmeticPrecedence(t *testing.T) {
	h := heap.New()
	cases := []struct {
		line string
		want bool
	}{
		{"A = 1 if 2 + 3 * 2 == 8", true},
		{"A = 1 if 2 + 3 * 2 == 7", false},
		{"A = 1 if 2 ^ 3 == 8", true},
		{"A = 1 if (2 + 3) * 2 == 10", true},
		{"A = 1 if 1 == 1 and 2 == 2", true},
		{"A = 1 if 1 == 2 or 2 == 2", true},
		{"A = 1 if 1 == 1 xor 2 == 2", false},
		{"A = 1 if -5 + 10 == 5", true},
	}
	for _, c := range cases {
		got := evalConditionLine(t, c.line, h)
		if got != c.want {
			t.Errorf("%q: got %v, want %v", c.line, got, c.want)
		}
	}
}

func TestEvalConditionHeapLookup(t *testing.T) {
	h := heap.New()
	h.SetScalar("Q_01", heap.NewScalarFloat(5))
	if !evalConditionLine(t, "A = 1 if Q[c] <> 0, c in 01", h) {
		t.Fatal("expected condition to be true for known non-zero value")
	}
}

func TestEvalConditionHeapMissIsError(t *testing.T) {
	h := heap.New()
	in, _ := parser.Parse("A = 1 if Q[c] <> 0, c in 01", 1)
	condition := in.Formula.Children[2]
	tuples, _ := elaborate.ExpandIterators(in.Formula, h)
	_, err := evalCondition(condition.Children[0], tuples[0], h)
	if err == nil {
		t.Fatal("expected a HeapMiss error for an unset heap entry")
	}
}
