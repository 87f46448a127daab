package parser

import (
	"testing"

	"github.com/mdl-lang/mdlc/internal/ast"
)

func mustParse(t *testing.T, line string) *Instruction {
	t.Helper()
	in, err := Parse(line, 1)
	if err != nil {
		t.Fatalf("Parse(%q): %v", line, err)
	}
	return in
}

func TestParseSimpleEquation(t *testing.T) {
	in := mustParse(t, "A = B + 2")
	if in.Formula == nil {
		t.Fatal("expected a formula")
	}
	body := in.Formula.Children[1]
	if body.Type != ast.Equation {
		t.Fatalf("got %v, want Equation", body.Type)
	}
}

func TestParseOptionPrefix(t *testing.T) {
	in := mustParse(t, "!pv A = B")
	opt := in.Formula.Children[0]
	if opt.IsNone() || opt.Literal.(string) != "!pv" {
		t.Fatalf("expected !pv option, got %+v", opt)
	}
}

func TestParseConditionAndIterator(t *testing.T) {
	in := mustParse(t, "Q[c] = R[c] if Q[c] <> 0, c in 01 02 03")
	f := in.Formula
	cond := f.Children[2]
	if cond.IsNone() || cond.Type != ast.Condition {
		t.Fatalf("expected a condition, got %+v", cond)
	}
	if len(f.Children) != 4 {
		t.Fatalf("expected one iterator child, got %d children", len(f.Children))
	}
	it := f.Children[3]
	if it.Type != ast.Iterator {
		t.Fatalf("got %v, want Iterator", it.Type)
	}
}

func TestParseIteratorExclusion(t *testing.T) {
	in := mustParse(t, "A[c] = 1, c in 01 02 \\ 02")
	it := in.Formula.Children[3]
	lists := it.Children[1]
	list := lists.Children[0]
	if list.Type != ast.ListNode {
		t.Fatalf("got %v, want ListNode", list.Type)
	}
	excl := list.Children[1]
	if excl.IsNone() {
		t.Fatal("expected a non-empty exclusion list")
	}
}

func TestParseCompositeIterator(t *testing.T) {
	in := mustParse(t, "A[c,s] = 1, (c,s) in (01 02, X Y)")
	it := in.Formula.Children[3]
	names := it.Children[0]
	if len(names.Children) != 2 {
		t.Fatalf("expected 2 iterator names, got %d", len(names.Children))
	}
}

func TestParseArrayWithTimeOffset(t *testing.T) {
	in := mustParse(t, "A = B[c](-1)")
	body := in.Formula.Children[1]
	rhs := body.Children[1]
	arr := rhs.Children[0]
	if arr.Type != ast.Array {
		t.Fatalf("got %v, want Array", arr.Type)
	}
	to := arr.Children[2]
	if to.IsNone() {
		t.Fatal("expected a time offset")
	}
}

func TestParseSumFunction(t *testing.T) {
	in := mustParse(t, "Total = sum(Q[c], c in 01 02)")
	body := in.Formula.Children[1]
	rhs := body.Children[1]
	fn := rhs.Children[0]
	if fn.Type != ast.Function {
		t.Fatalf("got %v, want Function", fn.Type)
	}
	if fn.Children[0].Literal.(string) != "sum" {
		t.Fatalf("expected sum, got %v", fn.Children[0].Literal)
	}
	inner := fn.Children[1]
	if inner.Type != ast.Formula {
		t.Fatalf("expected sum's argument to be a formula, got %v", inner.Type)
	}
}

func TestParseLoopCounter(t *testing.T) {
	in := mustParse(t, "A[c] = 2 * $c")
	body := in.Formula.Children[1]
	rhs := body.Children[1]
	if len(rhs.Children) < 3 {
		t.Fatalf("expected at least 3 expression children, got %d", len(rhs.Children))
	}
	lc := rhs.Children[2]
	if lc.Type != ast.LoopCounter || lc.Literal.(string) != "$c" {
		t.Fatalf("expected loopCounter $c, got %+v", lc)
	}
}

func TestParsePlaceholder(t *testing.T) {
	in := mustParse(t, "A|c| = 1")
	body := in.Formula.Children[1]
	eq := body
	if eq.Type != ast.Equation {
		t.Fatalf("got %v, want Equation", eq.Type)
	}
	lhs := eq.Children[0]
	ident := lhs.Children[0]
	if ident.Type != ast.Identifier {
		t.Fatalf("got %v, want Identifier", ident.Type)
	}
	if ident.Children[1].Type != ast.Placeholder {
		t.Fatalf("expected second identifier fragment to be a placeholder, got %v", ident.Children[1].Type)
	}
}

func TestParseLocalAssignment(t *testing.T) {
	in, err := Parse("local COM := 01 02 03", 1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Assignment == nil {
		t.Fatal("expected an assignment")
	}
	names := in.Assignment.Children[0]
	if names.Children[0].Literal.(string) != "COM" {
		t.Fatalf("unexpected name: %+v", names.Children[0])
	}
}

func TestParseMultiLocalAssignment(t *testing.T) {
	in, err := Parse("local A, B := 01 02, X Y", 1)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	names := in.Assignment.Children[0]
	lists := in.Assignment.Children[1]
	if len(names.Children) != 2 || len(lists.Children) != 2 {
		t.Fatalf("expected 2 names and 2 lists, got %d/%d", len(names.Children), len(lists.Children))
	}
}

func TestParseRejectsIteratorShapeMismatch(t *testing.T) {
	_, err := Parse("A[c,s] = 1, (c,s) in (01 02)", 1)
	if err == nil {
		t.Fatal("expected an iterator shape error")
	}
}
