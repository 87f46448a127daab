// Package heap implements the name -> value map that is seeded from a
// calibration table and threaded through compilation by the driver.
//
// Values are either scalars (a decimal number, or "unknown" for missing
// calibration values) or string lists (produced by local assignments).
package heap

import (
	"github.com/shopspring/decimal"
)

// Scalar is a single calibration/constant value. A Scalar carries its own
// "unknown" flag instead of using a sentinel numeric value, so a HeapMiss
// can be told apart from a legitimately present zero.
type Scalar struct {
	value   decimal.Decimal
	unknown bool
}

// NewScalar wraps a known numeric value.
func NewScalar(v decimal.Decimal) Scalar {
	return Scalar{value: v}
}

// NewScalarFloat wraps a known float64 value.
func NewScalarFloat(v float64) Scalar {
	return Scalar{value: decimal.NewFromFloat(v)}
}

// Unknown returns the "NA" scalar.
func Unknown() Scalar {
	return Scalar{unknown: true}
}

// IsUnknown reports whether the scalar is the "NA" sentinel.
func (s Scalar) IsUnknown() bool {
	return s.unknown
}

// Value returns the decimal value. Callers must check IsUnknown first.
func (s Scalar) Value() decimal.Decimal {
	return s.value
}

// Float64 returns the value as a float64. The condition evaluator does not
// use it; it computes on the decimal value.
func (s Scalar) Float64() float64 {
	f, _ := s.value.Float64()
	return f
}

// List is a string list, as produced by a `local` assignment.
type List []string

// Value is the tagged union of what a heap entry can hold.
type Value struct {
	Scalar  Scalar
	List    List
	isList  bool
	present bool
}

// ScalarValue wraps a Scalar as a heap Value.
func ScalarValue(s Scalar) Value {
	return Value{Scalar: s, present: true}
}

// ListValue wraps a string List as a heap Value.
func ListValue(l List) Value {
	return Value{List: l, isList: true, present: true}
}

// IsList reports whether the value is a string list rather than a scalar.
func (v Value) IsList() bool {
	return v.isList
}

// Heap is the process-wide name -> value map. It is owned by the driver
// and passed by pointer through the instruction loop; elaboration and
// generation only ever read from it.
type Heap struct {
	entries map[string]Value
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{entries: make(map[string]Value)}
}

// Get looks up a name. ok is false if the name was never set (a true
// HeapMiss, distinct from a present-but-unknown scalar).
func (h *Heap) Get(name string) (Value, bool) {
	v, ok := h.entries[name]
	return v, ok
}

// GetScalar looks up a scalar by name. A missing entry and a present
// "unknown" entry are both reported via the unknown return.
func (h *Heap) GetScalar(name string) (value decimal.Decimal, unknown bool) {
	v, ok := h.entries[name]
	if !ok || v.IsList() || v.Scalar.IsUnknown() {
		return decimal.Zero, true
	}
	return v.Scalar.Value(), false
}

// SetScalar stores a scalar value under name.
func (h *Heap) SetScalar(name string, s Scalar) {
	h.entries[name] = ScalarValue(s)
}

// SetList stores a string list under name (the effect of a `local` assignment).
func (h *Heap) SetList(name string, l List) {
	h.entries[name] = ListValue(l)
}

// GetList looks up a string list by name. ok is false if name was never
// set or was set to a scalar rather than a list.
func (h *Heap) GetList(name string) (l List, ok bool) {
	v, present := h.entries[name]
	if !present || !v.IsList() {
		return nil, false
	}
	return v.List, true
}

// Clone returns a shallow copy of the heap, useful for tests that must not
// observe mutation of a shared fixture.
func (h *Heap) Clone() *Heap {
	out := New()
	for k, v := range h.entries {
		out.entries[k] = v
	}
	return out
}
