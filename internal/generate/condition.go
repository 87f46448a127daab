package generate

import (
	"math"
	"strings"

	"github.com/mdl-lang/mdlc/internal/ast"
	"github.com/mdl-lang/mdlc/internal/elaborate"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/mdlerr"

	"github.com/shopspring/decimal"
)

// evalCondition evaluates a condition's expression against the heap,
// honoring numeric operator precedence (^; * /; + -; comparisons;
// and/or/xor). An identifier missing from the heap surfaces as a
// HeapMiss error; Formula/emitSum both treat that as "condition false,
// skip this equation" rather than a fatal compile error.
func evalCondition(expr *ast.Node, b *elaborate.Bindings, h *heap.Heap) (bool, error) {
	values, ops, err := flatten(expr, b, h)
	if err != nil {
		return false, err
	}

	tiers := []struct {
		ops     map[string]bool
		combine func(l, r interface{}, op string) (interface{}, error)
	}{
		{map[string]bool{"^": true}, combineArith},
		{map[string]bool{"*": true, "/": true}, combineArith},
		{map[string]bool{"+": true, "-": true}, combineArith},
		{map[string]bool{"<>": true, "<": true, "<=": true, ">": true, ">=": true, "==": true}, combineCompare},
		{map[string]bool{"and": true, "or": true, "xor": true}, combineBool},
	}
	for _, tier := range tiers {
		values, ops, err = reduceTier(values, ops, tier.ops, tier.combine)
		if err != nil {
			return false, err
		}
	}
	if len(values) != 1 {
		return false, mdlerr.New(mdlerr.Parse, "malformed condition expression")
	}
	return toBool(values[0]), nil
}

// flatten evaluates every atom in a flat `operator? atom (operator
// atom)*` expression to a value, folding a leading unary +/- into the
// first atom, and returns the remaining binary operators in order.
func flatten(expr *ast.Node, b *elaborate.Bindings, h *heap.Heap) ([]interface{}, []string, error) {
	children := expr.Children
	i := 0
	var leadingSign string
	if len(children) > 0 && children[0].Type == ast.Operator {
		op := children[0].Literal.(string)
		if op == "+" || op == "-" {
			leadingSign = op
			i = 1
		}
	}
	var values []interface{}
	var ops []string
	first := true
	for i < len(children) {
		if children[i].Type == ast.Operator {
			ops = append(ops, children[i].Literal.(string))
			i++
			continue
		}
		v, err := evalAtom(children[i], b, h)
		if err != nil {
			return nil, nil, err
		}
		if first && leadingSign == "-" {
			vd, err := toDecimal(v)
			if err != nil {
				return nil, nil, err
			}
			v = vd.Neg()
		}
		first = false
		values = append(values, v)
		i++
	}
	return values, ops, nil
}

func evalAtom(n *ast.Node, b *elaborate.Bindings, h *heap.Heap) (interface{}, error) {
	switch n.Type {
	case ast.Integer:
		return decimal.NewFromInt(n.Literal.(int64)), nil
	case ast.Real:
		return decimal.NewFromFloat(n.Literal.(float64)), nil
	case ast.Group:
		return evalGroupOrExpr(n.Children[0], b, h)
	case ast.Expression:
		return evalGroupOrExpr(n, b, h)
	case ast.LoopCounter:
		pos, err := elaborate.RealizeLoopCounter(n, b)
		if err != nil {
			return nil, err
		}
		return decimal.NewFromInt(int64(pos)), nil
	case ast.Identifier:
		name, err := elaborate.RealizeIdentifier(n, b)
		if err != nil {
			return nil, err
		}
		return lookupHeap(name, h)
	case ast.Array:
		return evalArrayValue(n, b, h)
	case ast.Function:
		return evalFunctionValue(n, b, h)
	default:
		return nil, mdlerr.New(mdlerr.Parse, "node type %s cannot appear in a condition", n.Type)
	}
}

func evalGroupOrExpr(n *ast.Node, b *elaborate.Bindings, h *heap.Heap) (interface{}, error) {
	values, ops, err := flatten(n, b, h)
	if err != nil {
		return nil, err
	}
	tiers := []struct {
		ops     map[string]bool
		combine func(l, r interface{}, op string) (interface{}, error)
	}{
		{map[string]bool{"^": true}, combineArith},
		{map[string]bool{"*": true, "/": true}, combineArith},
		{map[string]bool{"+": true, "-": true}, combineArith},
		{map[string]bool{"<>": true, "<": true, "<=": true, ">": true, ">=": true, "==": true}, combineCompare},
		{map[string]bool{"and": true, "or": true, "xor": true}, combineBool},
	}
	for _, tier := range tiers {
		values, ops, err = reduceTier(values, ops, tier.ops, tier.combine)
		if err != nil {
			return nil, err
		}
	}
	if len(values) != 1 {
		return nil, mdlerr.New(mdlerr.Parse, "malformed expression")
	}
	return values[0], nil
}

func evalArrayValue(n *ast.Node, b *elaborate.Bindings, h *heap.Heap) (interface{}, error) {
	ident, index, timeOffset := n.Children[0], n.Children[1], n.Children[2]
	core, err := elaborate.RealizeIdentifier(ident, b)
	if err != nil {
		return nil, err
	}
	if !index.IsNone() {
		parts := make([]string, len(index.Children))
		for i, c := range index.Children {
			s, err := emit(c, b, h, false)
			if err != nil {
				return nil, err
			}
			parts[i] = s
		}
		core += "_" + strings.Join(parts, "_")
	}
	if !timeOffset.IsNone() {
		off, err := elaborate.RealizeTimeOffset(timeOffset, b)
		if err != nil {
			return nil, err
		}
		core += "(" + off + ")"
	}
	return lookupHeap(core, h)
}

func evalFunctionValue(n *ast.Node, b *elaborate.Bindings, h *heap.Heap) (interface{}, error) {
	name := n.Children[0].Literal.(string)
	switch name {
	case "value":
		if len(n.Children) != 2 {
			return nil, mdlerr.New(mdlerr.Parse, "value() takes exactly one argument")
		}
		return evalAtom(n.Children[1], b, h)
	case "sum":
		inner := n.Children[1]
		body := inner.Children[1]
		condition := inner.Children[2]
		tuples, err := elaborate.ExpandIterators(inner, h)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, t := range tuples {
			merged := b.Merge(t)
			ok, err := evalFormulaCondition(condition, merged, h)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			v, err := evalAtom(body, merged, h)
			if err != nil {
				return nil, err
			}
			total = total.Add(v.(decimal.Decimal))
		}
		return total, nil
	default:
		return nil, mdlerr.New(mdlerr.Parse, "function %q cannot be evaluated in a condition", name)
	}
}

func lookupHeap(name string, h *heap.Heap) (interface{}, error) {
	v, unknown := h.GetScalar(strings.ToUpper(name))
	if unknown {
		return nil, mdlerr.New(mdlerr.HeapMiss, "%s is absent or unknown in the heap", name)
	}
	return v, nil
}

func reduceTier(values []interface{}, ops []string, tier map[string]bool, combine func(l, r interface{}, op string) (interface{}, error)) ([]interface{}, []string, error) {
	i := 0
	for i < len(ops) {
		if !tier[ops[i]] {
			i++
			continue
		}
		v, err := combine(values[i], values[i+1], ops[i])
		if err != nil {
			return nil, nil, err
		}
		values = append(values[:i], append([]interface{}{v}, values[i+2:]...)...)
		ops = append(ops[:i], ops[i+1:]...)
	}
	return values, ops, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case bool:
		if d {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	default:
		return decimal.Zero, mdlerr.New(mdlerr.Parse, "expected a number in condition expression")
	}
}

func toBool(v interface{}) bool {
	switch d := v.(type) {
	case bool:
		return d
	case decimal.Decimal:
		return !d.IsZero()
	default:
		return false
	}
}

func combineArith(l, r interface{}, op string) (interface{}, error) {
	ld, err := toDecimal(l)
	if err != nil {
		return nil, err
	}
	rd, err := toDecimal(r)
	if err != nil {
		return nil, err
	}
	switch op {
	case "^":
		lf, _ := ld.Float64()
		rf, _ := rd.Float64()
		return decimal.NewFromFloat(math.Pow(lf, rf)), nil
	case "*":
		return ld.Mul(rd), nil
	case "/":
		if rd.IsZero() {
			return nil, mdlerr.New(mdlerr.Parse, "division by zero in condition expression")
		}
		return ld.Div(rd), nil
	case "+":
		return ld.Add(rd), nil
	case "-":
		return ld.Sub(rd), nil
	default:
		return nil, mdlerr.New(mdlerr.Parse, "unknown arithmetic operator %q", op)
	}
}

func combineCompare(l, r interface{}, op string) (interface{}, error) {
	ld, err := toDecimal(l)
	if err != nil {
		return nil, err
	}
	rd, err := toDecimal(r)
	if err != nil {
		return nil, err
	}
	cmp := ld.Cmp(rd)
	switch op {
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "==":
		return cmp == 0, nil
	default:
		return nil, mdlerr.New(mdlerr.Parse, "unknown comparison operator %q", op)
	}
}

func combineBool(l, r interface{}, op string) (interface{}, error) {
	lb, rb := toBool(l), toBool(r)
	switch op {
	case "and":
		return lb && rb, nil
	case "or":
		return lb || rb, nil
	case "xor":
		return lb != rb, nil
	default:
		return nil, mdlerr.New(mdlerr.Parse, "unknown boolean operator %q", op)
	}
}
