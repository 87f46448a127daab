// Package generate renders an elaborated formula into the equation-text
// lines that make up mdlc's compiled output, and evaluates the small
// arithmetic/boolean subset used by conditions (internal/generate's
// condition.go).
package generate

import (
	"strconv"
	"strings"

	"github.com/mdl-lang/mdlc/internal/ast"
	"github.com/mdl-lang/mdlc/internal/elaborate"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/mdlerr"
)

// Equation is one generated equation string together with the realized
// left-hand-side name, used later to build the dependency graph.
type Equation struct {
	Text string
	LHS  string
	RHS  string
}

// Formula elaborates and renders one top-level formula node, returning
// one Equation per surviving binding (and, in price-value mode, two: the
// value form followed by the plain form).
func Formula(formula *ast.Node, h *heap.Heap) ([]Equation, error) {
	options := formula.Children[0]
	priceValue := !options.IsNone()
	body := formula.Children[1]
	condition := formula.Children[2]

	tuples, err := elaborate.ExpandIterators(formula, h)
	if err != nil {
		return nil, err
	}

	var out []Equation
	for _, b := range tuples {
		ok, err := evalFormulaCondition(condition, b, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if priceValue {
			eq, err := renderEquation(body, b, h, true)
			if err != nil {
				return nil, err
			}
			out = append(out, eq)
		}
		eq, err := renderEquation(body, b, h, false)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, nil
}

func evalFormulaCondition(condition *ast.Node, b *elaborate.Bindings, h *heap.Heap) (bool, error) {
	if condition.IsNone() {
		return true, nil
	}
	v, err := evalCondition(condition.Children[0], b, h)
	if err != nil {
		if mdlerr.IsHeapMiss(err) {
			return false, nil
		}
		return false, err
	}
	return v, nil
}

func renderEquation(body *ast.Node, b *elaborate.Bindings, h *heap.Heap, asValue bool) (Equation, error) {
	if body.Type == ast.Equation {
		lhs, err := emit(body.Children[0], b, h, asValue)
		if err != nil {
			return Equation{}, err
		}
		rhs, err := emit(body.Children[1], b, h, asValue)
		if err != nil {
			return Equation{}, err
		}
		return Equation{Text: lhs + " = " + rhs, LHS: lhs, RHS: rhs}, nil
	}
	text, err := emit(body, b, h, asValue)
	if err != nil {
		return Equation{}, err
	}
	return Equation{Text: text}, nil
}

// emit renders one expression-tree node to text. asValue marks whether
// the enclosing formula is in price-value mode for this pass; it resets
// to false inside identifier/array nodes' own children (it governs only
// whether *this* identifier/array gets the P<x> * <x> wrapper) but
// otherwise propagates unchanged, including into plain function calls.
func emit(n *ast.Node, b *elaborate.Bindings, h *heap.Heap, asValue bool) (string, error) {
	switch n.Type {
	case ast.Integer:
		return strconv.FormatInt(n.Literal.(int64), 10), nil
	case ast.Real:
		return strconv.FormatFloat(n.Literal.(float64), 'g', -1, 64), nil
	case ast.Operator:
		return n.Literal.(string), nil
	case ast.Group:
		inner, err := emit(n.Children[0], b, h, asValue)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case ast.LoopCounter:
		pos, err := elaborate.RealizeLoopCounter(n, b)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(pos), nil
	case ast.Identifier:
		name, err := elaborate.RealizeIdentifier(n, b)
		if err != nil {
			return "", err
		}
		return valueForm(name, asValue), nil
	case ast.Array:
		return emitArray(n, b, h, asValue)
	case ast.Expression:
		return emitExpression(n, b, h, asValue)
	case ast.Function:
		return emitFunction(n, b, h, asValue)
	default:
		return "", mdlerr.New(mdlerr.Parse, "cannot generate text for node type %s", n.Type)
	}
}

func emitExpression(n *ast.Node, b *elaborate.Bindings, h *heap.Heap, asValue bool) (string, error) {
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		s, err := emit(c, b, h, asValue)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), nil
}

func emitArray(n *ast.Node, b *elaborate.Bindings, h *heap.Heap, asValue bool) (string, error) {
	ident, index, timeOffset := n.Children[0], n.Children[1], n.Children[2]
	core, err := elaborate.RealizeIdentifier(ident, b)
	if err != nil {
		return "", err
	}
	if !index.IsNone() {
		parts := make([]string, len(index.Children))
		for i, c := range index.Children {
			s, err := emit(c, b, h, false)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		core += "_" + strings.Join(parts, "_")
	}
	if !timeOffset.IsNone() {
		off, err := elaborate.RealizeTimeOffset(timeOffset, b)
		if err != nil {
			return "", err
		}
		core += "(" + off + ")"
	}
	return valueForm(core, asValue), nil
}

func emitFunction(n *ast.Node, b *elaborate.Bindings, h *heap.Heap, asValue bool) (string, error) {
	name := n.Children[0].Literal.(string)
	switch name {
	case "sum":
		return emitSum(n.Children[1], b, h)
	case "value":
		if len(n.Children) != 2 {
			return "", mdlerr.New(mdlerr.Parse, "value() takes exactly one argument")
		}
		return emit(n.Children[1], b, h, true)
	default:
		args := n.Children[1:]
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := emit(a, b, h, asValue)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return name + "(" + strings.Join(parts, ", ") + ")", nil
	}
}

// emitSum elaborates its formula argument against the outer bindings,
// merging in each of its own iterator's bindings, and sums the rendered
// values of every binding that passes the inner condition. A sum is never
// itself price-value-doubled (spec resolution: price-value doubling is
// decided once per enclosing formula, not propagated into sum's inner
// formula).
func emitSum(inner *ast.Node, outer *elaborate.Bindings, h *heap.Heap) (string, error) {
	options := inner.Children[0]
	if !options.IsNone() {
		return "", mdlerr.New(mdlerr.Parse, "sum's argument formula cannot itself carry a price-value option")
	}
	body := inner.Children[1]
	condition := inner.Children[2]

	tuples, err := elaborate.ExpandIterators(inner, h)
	if err != nil {
		return "", err
	}

	var terms []string
	for _, t := range tuples {
		merged := outer.Merge(t)
		ok, err := evalFormulaCondition(condition, merged, h)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		text, err := emit(body, merged, h, false)
		if err != nil {
			return "", err
		}
		terms = append(terms, text)
	}
	if len(terms) == 0 {
		return "0", nil
	}
	return "0 + " + strings.Join(terms, " + "), nil
}

func valueForm(s string, asValue bool) string {
	if asValue {
		return "P" + s + " * " + s
	}
	return s
}
