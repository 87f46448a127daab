// Package parser implements the MDL recursive-descent grammar (spec §4.2):
// it turns one logical instruction string into a typed ast.Node tree.
//
// The parser works directly over the instruction's rune stream rather
// than through a separate tokenizer pass, in the style of the hand-rolled
// recursive-descent parsers found across the retrieval pack (e.g.
// xyproto-flapc's parser.go): a small set of peek/consume primitives plus
// one function per grammar production.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/mdl-lang/mdlc/internal/ast"
	"github.com/mdl-lang/mdlc/internal/mdlerr"
)

// Instruction is either a `local` assignment or a formula (the two
// instruction shapes the parser ever sees -- `include` is resolved by
// internal/reader before parsing).
type Instruction struct {
	Assignment *ast.Node // Assignment node, or nil
	Formula    *ast.Node // Formula node, or nil
}

// Parse parses one logical instruction line into an Instruction.
func Parse(line string, lineNo int) (*Instruction, error) {
	p := &parser{src: []rune(line), line: lineNo}
	p.skipSpace()
	if p.matchWord("local") {
		n, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return &Instruction{Assignment: n}, nil
	}
	f, err := p.parseFormula()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errf("unexpected trailing input")
	}
	return &Instruction{Formula: f}, nil
}

type parser struct {
	src  []rune
	pos  int
	line int
}

func (p *parser) errf(format string, args ...interface{}) error {
	return mdlerr.New(mdlerr.Parse, format, args...).AtLine(p.line).AtPos(p.pos)
}

func (p *parser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *parser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) peekAt(off int) rune {
	i := p.pos + off
	if i < 0 || i >= len(p.src) {
		return 0
	}
	return p.src[i]
}

func (p *parser) skipSpace() {
	for !p.eof() && unicode.IsSpace(p.peek()) {
		p.pos++
	}
}

// matchByte consumes the given literal rune, skipping leading space first.
func (p *parser) matchByte(r rune) bool {
	p.skipSpace()
	if p.peek() == r {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectByte(r rune) error {
	if !p.matchByte(r) {
		return p.errf("expected %q", string(r))
	}
	return nil
}

// matchWord consumes a keyword (e.g. "if", "in", "local") only when it
// appears as a whole word -- not as a prefix of a longer identifier.
func (p *parser) matchWord(word string) bool {
	p.skipSpace()
	start := p.pos
	n := len([]rune(word))
	if p.pos+n > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+n]) != word {
		return false
	}
	if p.pos+n < len(p.src) && isIdentCont(p.src[p.pos+n]) {
		return false
	}
	p.pos = start + n
	return true
}

// matchLiteral consumes a fixed multi-rune operator/option token.
func (p *parser) matchLiteral(lit string) bool {
	p.skipSpace()
	n := len([]rune(lit))
	if p.pos+n > len(p.src) {
		return false
	}
	if string(p.src[p.pos:p.pos+n]) == lit {
		p.pos += n
		return true
	}
	return false
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '%' || r == '$' || r == '@'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isAlnumWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

//----------------------------------------------------------------------
// local assignment: `local name (, name)* := list (, list)*`
//----------------------------------------------------------------------

func (p *parser) parseAssignment() (*ast.Node, error) {
	var names []*ast.Node
	for {
		p.skipSpace()
		name, err := p.readVariableName()
		if err != nil {
			return nil, err
		}
		names = append(names, ast.NewTerminal(ast.VariableName, name))
		if p.matchByte(',') {
			continue
		}
		break
	}
	if !p.matchLiteral(":=") && !p.matchByte('=') {
		return nil, p.errf("expected ':=' in local assignment")
	}
	var lists []*ast.Node
	for {
		lst, err := p.readListBase()
		if err != nil {
			return nil, err
		}
		lists = append(lists, lst)
		if p.matchByte(',') {
			continue
		}
		break
	}
	if len(names) != len(lists) {
		return nil, p.errf("local assignment has %d names but %d lists", len(names), len(lists))
	}
	return ast.NewComposite(ast.Assignment,
		ast.NewComposite(ast.ListBase, names...),
		ast.NewComposite(ast.ListBase, lists...),
	), nil
}

// readListBase reads one whitespace-delimited run of alnum words (the
// bare `string` tokens of spec §4.2's `list` production) up to the next
// top-level comma or end of input.
func (p *parser) readListBase() (*ast.Node, error) {
	var words []*ast.Node
	for {
		p.skipSpace()
		if p.eof() || p.peek() == ',' {
			break
		}
		w, ok := p.readWord()
		if !ok {
			return nil, p.errf("expected a list value")
		}
		words = append(words, ast.NewTerminal(ast.String, w))
	}
	if len(words) == 0 {
		return nil, p.errf("empty list")
	}
	return ast.NewComposite(ast.ListBase, words...), nil
}

func (p *parser) readWord() (string, bool) {
	start := p.pos
	for !p.eof() && isAlnumWord(p.peek()) {
		p.pos++
	}
	if p.pos == start {
		return "", false
	}
	return string(p.src[start:p.pos]), true
}

//----------------------------------------------------------------------
// formula ::= options? (equation | expression) condition? (',' iterator)*
//----------------------------------------------------------------------

var optionTokens = []string{"!pv", "!Pv", "!p", "!P"}

func (p *parser) parseFormula() (*ast.Node, error) {
	options := ast.NoneNode
	p.skipSpace()
	for _, opt := range optionTokens {
		if p.matchLiteral(opt) {
			options = ast.NewTerminal(ast.Literal, opt)
			break
		}
	}

	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var body *ast.Node
	if p.matchByte('=') {
		rhs, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body = ast.NewComposite(ast.Equation, lhs, rhs)
	} else {
		body = lhs
	}

	condition := ast.NoneNode
	p.skipSpace()
	if p.matchWord("if") {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		condition = ast.NewComposite(ast.Condition, expr)
	}

	var iterators []*ast.Node
	p.skipSpace()
	if p.matchByte(',') {
		for {
			it, err := p.parseIterator()
			if err != nil {
				return nil, err
			}
			iterators = append(iterators, it)
			if p.matchByte(',') {
				continue
			}
			break
		}
	}

	children := []*ast.Node{options, body, condition}
	children = append(children, iterators...)
	return ast.NewComposite(ast.Formula, children...), nil
}

//----------------------------------------------------------------------
// iterator ::= variableName 'in' list
//            | '(' variableName (',' variableName)+ ')' 'in' '(' list (',' list)+ ')'
//----------------------------------------------------------------------

func (p *parser) parseIterator() (*ast.Node, error) {
	p.skipSpace()
	var names []*ast.Node
	composite := p.matchByte('(')
	for {
		p.skipSpace()
		name, err := p.readVariableName()
		if err != nil {
			return nil, err
		}
		names = append(names, ast.NewTerminal(ast.VariableName, name))
		if composite && p.matchByte(',') {
			continue
		}
		break
	}
	if composite {
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
	}
	if !p.matchWord("in") {
		return nil, p.errf("expected 'in' in iterator")
	}
	p.skipSpace()
	var lists []*ast.Node
	listsParenthesized := p.matchByte('(')
	for {
		lst, err := p.parseList()
		if err != nil {
			return nil, err
		}
		lists = append(lists, lst)
		if listsParenthesized && p.matchByte(',') {
			continue
		}
		break
	}
	if listsParenthesized {
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
	}
	if len(names) != len(lists) {
		return nil, mdlerr.New(mdlerr.IteratorShape,
			"iterator declares %d names but %d lists", len(names), len(lists)).AtLine(p.line)
	}
	return ast.NewComposite(ast.Iterator,
		ast.NewComposite(ast.ListBase, names...),
		ast.NewComposite(ast.ListBase, lists...),
	), nil
}

// parseList parses `list ::= string+ ('\' string+)?` up to the next
// top-level comma or closing paren/end of input.
func (p *parser) parseList() (*ast.Node, error) {
	base, err := p.readListWords(func(r rune) bool { return r == ',' || r == ')' || r == '\\' })
	if err != nil {
		return nil, err
	}
	excl := ast.NoneNode
	p.skipSpace()
	if p.matchByte('\\') {
		exclWords, err := p.readListWords(func(r rune) bool { return r == ',' || r == ')' })
		if err != nil {
			return nil, err
		}
		excl = exclWords
	}
	return ast.NewComposite(ast.ListNode, base, excl), nil
}

func (p *parser) readListWords(stop func(rune) bool) (*ast.Node, error) {
	var words []*ast.Node
	for {
		p.skipSpace()
		if p.eof() || stop(p.peek()) {
			break
		}
		w, ok := p.readWord()
		if !ok {
			return nil, p.errf("expected a list value")
		}
		words = append(words, ast.NewTerminal(ast.String, w))
	}
	if len(words) == 0 {
		return nil, p.errf("empty list")
	}
	return ast.NewComposite(ast.ListBase, words...), nil
}

//----------------------------------------------------------------------
// expression ::= operator? atom (operator atom)*
//----------------------------------------------------------------------

var operators = []string{
	"<>", "<=", ">=", "==", "<", ">", // multi-char first
	"+", "-", "*", "/", "^",
}
var wordOperators = []string{"and", "or", "xor"}

func (p *parser) matchOperator() (string, bool) {
	p.skipSpace()
	for _, w := range wordOperators {
		if p.matchWord(w) {
			return w, true
		}
	}
	for _, op := range operators {
		if p.matchLiteral(op) {
			return op, true
		}
	}
	return "", false
}

func (p *parser) parseExpression() (*ast.Node, error) {
	var children []*ast.Node
	if op, ok := p.matchOperator(); ok {
		children = append(children, ast.NewTerminal(ast.Operator, op))
	}
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	children = append(children, atom)
	for {
		save := p.pos
		op, ok := p.matchOperator()
		if !ok {
			p.pos = save
			break
		}
		next, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		children = append(children, ast.NewTerminal(ast.Operator, op), next)
	}
	return ast.NewComposite(ast.Expression, children...), nil
}

// atom ::= function | '(' expression ')' | array | identifier | real | integer | loopCounter
func (p *parser) parseAtom() (*ast.Node, error) {
	p.skipSpace()
	if p.matchByte('(') {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
		return ast.NewComposite(ast.Group, expr), nil
	}
	if n, ok, err := p.tryNumber(); ok || err != nil {
		return n, err
	}
	if p.peek() == '|' || isIdentStart(p.peek()) {
		return p.parseIdentifierLike()
	}
	return nil, p.errf("unexpected character %q", string(p.peek()))
}

func (p *parser) tryNumber() (*ast.Node, bool, error) {
	save := p.pos
	p.skipSpace()
	start := p.pos
	neg := false
	if p.peek() == '-' && unicode.IsDigit(p.peekAt(1)) {
		neg = true
		p.pos++
	}
	digitsStart := p.pos
	for !p.eof() && unicode.IsDigit(p.peek()) {
		p.pos++
	}
	if p.pos == digitsStart {
		p.pos = save
		return nil, false, nil
	}
	if p.peek() == '.' && unicode.IsDigit(p.peekAt(1)) {
		p.pos++
		for !p.eof() && unicode.IsDigit(p.peek()) {
			p.pos++
		}
		text := string(p.src[start:p.pos])
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, true, p.errf("invalid real literal %q", text)
		}
		return ast.NewTerminal(ast.Real, v), true, nil
	}
	text := string(p.src[start:p.pos])
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, true, p.errf("invalid integer literal %q", text)
	}
	_ = neg
	return ast.NewTerminal(ast.Integer, v), true, nil
}

// parseIdentifierLike reads a (variableName|placeholder)+ run and then
// tie-breaks between a loopCounter, a function call, an array, and a
// plain identifier, per spec §4.2.
func (p *parser) parseIdentifierLike() (*ast.Node, error) {
	var parts []*ast.Node
	for {
		if p.peek() == '|' {
			ph, err := p.parsePlaceholder()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ph)
			continue
		}
		if isIdentStart(p.peek()) {
			name, err := p.readVariableName()
			if err != nil {
				return nil, err
			}
			// function call: a bare name immediately followed by '('
			if len(parts) == 0 && p.peek() == '(' {
				return p.parseFunctionCall(name)
			}
			parts = append(parts, ast.NewTerminal(ast.VariableName, name))
			continue
		}
		break
	}
	if len(parts) == 0 {
		return nil, p.errf("expected identifier")
	}
	// loopCounter tie-break: a single bare "$name" fragment.
	if len(parts) == 1 && parts[0].Type == ast.VariableName {
		text := parts[0].Literal.(string)
		if strings.HasPrefix(text, "$") {
			return ast.NewTerminal(ast.LoopCounter, text), nil
		}
	}
	ident := ast.NewComposite(ast.Identifier, parts...)
	if p.peek() == '[' {
		return p.parseArray(ident)
	}
	return ident, nil
}

func (p *parser) parsePlaceholder() (*ast.Node, error) {
	if err := p.expectByte('|'); err != nil {
		return nil, err
	}
	name, err := p.readVariableName()
	if err != nil {
		return nil, err
	}
	if err := p.expectByte('|'); err != nil {
		return nil, err
	}
	return ast.NewComposite(ast.Placeholder, ast.NewTerminal(ast.VariableName, name)), nil
}

func (p *parser) readVariableName() (string, error) {
	p.skipSpace()
	if !isIdentStart(p.peek()) {
		return "", p.errf("expected a variable name")
	}
	start := p.pos
	p.pos++
	for !p.eof() && isIdentCont(p.peek()) {
		p.pos++
	}
	return string(p.src[start:p.pos]), nil
}

func (p *parser) parseArray(ident *ast.Node) (*ast.Node, error) {
	if err := p.expectByte('['); err != nil {
		return nil, err
	}
	var exprs []*ast.Node
	for {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.matchByte(',') {
			continue
		}
		break
	}
	if err := p.expectByte(']'); err != nil {
		return nil, err
	}
	index := ast.NewComposite(ast.Index, exprs...)
	timeOffset := ast.NoneNode
	p.skipSpace()
	if p.peek() == '(' {
		save := p.pos
		to, ok, err := p.tryTimeOffset()
		if err != nil {
			return nil, err
		}
		if ok {
			timeOffset = to
		} else {
			p.pos = save
		}
	}
	return ast.NewComposite(ast.Array, ident, index, timeOffset), nil
}

// tryTimeOffset parses `'(' (integer | variableName) ')'`; ok is false
// (with position restored by the caller) if '(' does not open a bare
// integer/name immediately followed by ')'.
func (p *parser) tryTimeOffset() (*ast.Node, bool, error) {
	if !p.matchByte('(') {
		return nil, false, nil
	}
	p.skipSpace()
	if n, ok, err := p.tryNumber(); err != nil {
		return nil, true, err
	} else if ok {
		p.skipSpace()
		if !p.matchByte(')') {
			return nil, false, nil
		}
		return ast.NewComposite(ast.TimeOffset, n), true, nil
	}
	if isIdentStart(p.peek()) {
		name, err := p.readVariableName()
		if err != nil {
			return nil, true, err
		}
		p.skipSpace()
		if !p.matchByte(')') {
			return nil, false, nil
		}
		return ast.NewComposite(ast.TimeOffset, ast.NewTerminal(ast.VariableName, name)), true, nil
	}
	return nil, false, nil
}

// parseFunctionCall parses the arguments of `name(...)`, special-casing
// `sum(formula)`.
func (p *parser) parseFunctionCall(name string) (*ast.Node, error) {
	if err := p.expectByte('('); err != nil {
		return nil, err
	}
	if name == "sum" {
		formula, err := p.parseFormula()
		if err != nil {
			return nil, err
		}
		if err := p.expectByte(')'); err != nil {
			return nil, err
		}
		return ast.NewComposite(ast.Function, ast.NewTerminal(ast.VariableName, name), formula), nil
	}
	var args []*ast.Node
	p.skipSpace()
	if p.peek() != ')' {
		for {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.matchByte(',') {
				continue
			}
			break
		}
	}
	if err := p.expectByte(')'); err != nil {
		return nil, err
	}
	children := append([]*ast.Node{ast.NewTerminal(ast.VariableName, name)}, args...)
	return ast.NewComposite(ast.Function, children...), nil
}
