// Package elaborate resolves a formula's iterator clauses into the set of
// concrete bindings the generator must emit one equation per, and realizes
// identifier/array nodes into the flat names used both as generated text
// and as heap lookup keys.
//
// Resolution is kept separate from printing: this package only ever
// produces bindings and realized names, never equation text.
package elaborate

import (
	"strconv"
	"strings"

	"github.com/mdl-lang/mdlc/internal/ast"
	"github.com/mdl-lang/mdlc/internal/heap"
	"github.com/mdl-lang/mdlc/internal/mdlerr"
)

// Bindings maps the names declared by a formula's iterator clauses to the
// list item bound to them in one Cartesian-product tuple, plus the
// corresponding loop-counter positions (looked up by the bare name, not
// the "$name" spelling).
type Bindings struct {
	vars     map[string]string
	counters map[string]int
}

func newBindings() *Bindings {
	return &Bindings{vars: map[string]string{}, counters: map[string]int{}}
}

// Var returns the string a name is bound to, if any.
func (b *Bindings) Var(name string) (string, bool) {
	if b == nil {
		return "", false
	}
	v, ok := b.vars[name]
	return v, ok
}

// Counter returns the 1-based loop-counter position for an iterator name
// (without its "$" prefix).
func (b *Bindings) Counter(name string) (int, bool) {
	if b == nil {
		return 0, false
	}
	v, ok := b.counters[name]
	return v, ok
}

// Merge returns a new Bindings containing both b's and o's entries; o's
// entries win on conflict. Either argument may be nil.
func (b *Bindings) Merge(o *Bindings) *Bindings {
	out := newBindings()
	if b != nil {
		for k, v := range b.vars {
			out.vars[k] = v
		}
		for k, v := range b.counters {
			out.counters[k] = v
		}
	}
	if o != nil {
		for k, v := range o.vars {
			out.vars[k] = v
		}
		for k, v := range o.counters {
			out.counters[k] = v
		}
	}
	return out
}

// ExpandIterators resolves a Formula node's iterator clauses (children
// [3:]) into the ordered list of Bindings to generate one equation set
// for, one per element of the Cartesian product of the clauses.
//
// Within a single clause, names are bound in lockstep (zipped) by
// position in their lists, not crossed with each other -- a composite
// iterator `(c,s) in (L1,L2)` pairs L1[i] with L2[i], it does not range
// over every (L1[i], L2[j]) pair. Distinct clauses separated by a
// top-level comma in the formula *are* crossed.
//
// h resolves a list position that is a single bare word into a named
// list: if that word was bound by an outer `local` assignment, the
// iterator ranges over the heap list's contents instead of treating the
// word as a one-element literal list.
func ExpandIterators(formula *ast.Node, h *heap.Heap) ([]*Bindings, error) {
	clauses := formula.Children[3:]
	if len(clauses) == 0 {
		return []*Bindings{newBindings()}, nil
	}
	dims := make([][]*Bindings, len(clauses))
	for i, clause := range clauses {
		tuples, err := expandClause(clause, h)
		if err != nil {
			return nil, err
		}
		dims[i] = tuples
	}
	result := []*Bindings{newBindings()}
	for _, dim := range dims {
		var next []*Bindings
		for _, acc := range result {
			for _, t := range dim {
				next = append(next, acc.Merge(t))
			}
		}
		result = next
	}
	return result, nil
}

type decodedList struct {
	base    []string
	exclude map[string]bool
}

// expandClause resolves one `iterator` node into the Bindings for each
// surviving (non-excluded) position of its lists.
func expandClause(clause *ast.Node, h *heap.Heap) ([]*Bindings, error) {
	names := clause.Children[0].Children
	lists := clause.Children[1].Children
	if len(names) != len(lists) {
		return nil, mdlerr.New(mdlerr.IteratorShape,
			"iterator declares %d names but %d lists", len(names), len(lists))
	}

	decoded := make([]decodedList, len(lists))
	baseLen := -1
	for i, lst := range lists {
		base := resolveListBase(wordsOf(lst.Children[0]), h)
		excl := map[string]bool{}
		if !lst.Children[1].IsNone() {
			for _, w := range wordsOf(lst.Children[1]) {
				excl[w] = true
			}
		}
		if baseLen == -1 {
			baseLen = len(base)
		} else if len(base) != baseLen {
			return nil, mdlerr.New(mdlerr.IteratorShape,
				"iterator's lists have mismatched lengths (%d vs %d)", baseLen, len(base))
		}
		decoded[i] = decodedList{base: base, exclude: excl}
	}

	var tuples []*Bindings
	counter := 0
	for pos := 0; pos < baseLen; pos++ {
		excluded := false
		for _, d := range decoded {
			if d.exclude[d.base[pos]] {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		counter++
		b := newBindings()
		for i, nameNode := range names {
			name := nameNode.Literal.(string)
			b.vars[name] = decoded[i].base[pos]
			b.counters[name] = counter
		}
		tuples = append(tuples, b)
	}
	return tuples, nil
}

func wordsOf(listBase *ast.Node) []string {
	out := make([]string, len(listBase.Children))
	for i, c := range listBase.Children {
		out[i] = c.Literal.(string)
	}
	return out
}

// resolveListBase lets an iterator list position name a `local`-defined
// list instead of spelling it out: a clause written as a single bare
// word (`c in COM`) is a literal one-element list unless that word is
// itself the name of a list an outer `local` assignment bound in the
// heap, in which case the iterator ranges over that list's contents.
// A clause of more than one word is always literal -- only a lone word
// is ambiguous enough to need the heap lookup.
func resolveListBase(words []string, h *heap.Heap) []string {
	if h == nil || len(words) != 1 {
		return words
	}
	if named, ok := h.GetList(strings.ToUpper(words[0])); ok {
		out := make([]string, len(named))
		copy(out, named)
		return out
	}
	return words
}

// RealizeIdentifier concatenates an identifier's variableName/placeholder
// fragments into the flat name used for generated text and heap lookups.
// A bound fragment is substituted with its bound string; an unbound plain
// variableName fragment passes through literally (it is a constant part
// of the name, e.g. "Q" in "Q[c]"); an unbound placeholder is an error.
func RealizeIdentifier(ident *ast.Node, b *Bindings) (string, error) {
	var sb strings.Builder
	for _, frag := range ident.Children {
		switch frag.Type {
		case ast.VariableName:
			name := frag.Literal.(string)
			if v, ok := b.Var(name); ok {
				sb.WriteString(v)
			} else {
				sb.WriteString(name)
			}
		case ast.Placeholder:
			inner := frag.Children[0]
			name := inner.Literal.(string)
			v, ok := b.Var(name)
			if !ok {
				return "", mdlerr.New(mdlerr.UnboundPlaceholder, "placeholder |%s| has no binding here", name)
			}
			sb.WriteString(v)
		}
	}
	return sb.String(), nil
}

// RealizeLoopCounter returns the 1-based position bound to a "$name" node.
func RealizeLoopCounter(lc *ast.Node, b *Bindings) (int, error) {
	text := lc.Literal.(string)
	name := strings.TrimPrefix(text, "$")
	v, ok := b.Counter(name)
	if !ok {
		return 0, mdlerr.New(mdlerr.UnboundPlaceholder, "loop counter %s has no enclosing iterator", text)
	}
	return v, nil
}

// RealizeTimeOffset renders a timeOffset's single child, which is either a
// bare integer or a variableName resolved the same way an identifier
// fragment would be.
func RealizeTimeOffset(to *ast.Node, b *Bindings) (string, error) {
	inner := to.Children[0]
	switch inner.Type {
	case ast.Integer:
		return strconv.FormatInt(inner.Literal.(int64), 10), nil
	case ast.VariableName:
		name := inner.Literal.(string)
		if v, ok := b.Var(name); ok {
			return v, nil
		}
		return name, nil
	default:
		return "", mdlerr.New(mdlerr.Parse, "invalid timeOffset contents")
	}
}
