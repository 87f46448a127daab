// Package mdlerr defines the typed errors raised by the compiler phases.
package mdlerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a compiler failure. All kinds except HeapMiss are fatal
// to the current compilation.
type Kind int

const (
	// Parse is a grammar mismatch; carries position and an expected-token hint.
	Parse Kind = iota
	// Include covers a missing file, self-inclusion, or an include cycle.
	Include
	// IteratorShape covers mismatched list counts, duplicate iterator
	// names, or a Cartesian product referencing an undefined iterator.
	IteratorShape
	// UnboundPlaceholder is a placeholder or indexed iterator name with no binding.
	UnboundPlaceholder
	// HeapMiss is a condition or value() expansion referencing a name
	// absent from the heap. Policy: treat as unknown, skip the equation;
	// does not abort compilation.
	HeapMiss
	// IO covers input/output failures.
	IO
)

func (k Kind) String() string {
	switch k {
	case Parse:
		return "ParseError"
	case Include:
		return "IncludeError"
	case IteratorShape:
		return "IteratorShapeError"
	case UnboundPlaceholder:
		return "UnboundPlaceholder"
	case HeapMiss:
		return "HeapMiss"
	case IO:
		return "IOError"
	default:
		return "Error"
	}
}

// Error is the single error type surfaced by every compiler phase.
type Error struct {
	kind Kind
	msg  string
	line int
	pos  int
	hint string
	err  error
}

// New creates a kinded error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying cause, preserving it for errors.Cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: errors.WithStack(cause)}
}

// AtLine records the source line number where the failure occurred.
func (e *Error) AtLine(line int) *Error {
	e.line = line
	return e
}

// AtPos additionally records a column/position within the line.
func (e *Error) AtPos(pos int) *Error {
	e.pos = pos
	return e
}

// WithHint attaches an expected-token hint, printed by Error as
// ": expected <hint>".
func (e *Error) WithHint(hint string) *Error {
	e.hint = hint
	return e
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Line returns the 1-based source line, or 0 if not applicable.
func (e *Error) Line() int {
	return e.line
}

func (e *Error) Error() string {
	s := e.msg
	if e.hint != "" {
		s += ": expected " + e.hint
	}
	if e.line > 0 {
		s = fmt.Sprintf("line %d: %s", e.line, s)
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.err
}

// Cause satisfies github.com/pkg/errors' causer interface.
func (e *Error) Cause() error {
	return e.err
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, and ok=true.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return 0, false
}

// IsHeapMiss reports whether err is a HeapMiss error.
func IsHeapMiss(err error) bool {
	k, ok := KindOf(err)
	return ok && k == HeapMiss
}
