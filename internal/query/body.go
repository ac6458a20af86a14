// Package query compiles raw search strings into boolean query trees.
//
// A search string is tokenized into segments, each segment is claimed by
// the converter whose selector matches its field prefix, and the converted
// nodes are folded into a single Body. The converter table is assembled
// once at startup and never mutated afterwards, so a Compiler is safe for
// concurrent use.
package query

import "fmt"

// Body is one node of a compiled query tree.
//
// The concrete types are TextMatch, Range and Bool. Nodes are immutable
// once built; composition always creates new nodes.
type Body interface {
	body()
}

// TextMatch matches text against one or more entry fields.
type TextMatch struct {
	fields   []Field
	text     string
	operator Operator
}

func (TextMatch) body() {}

// Fields returns the fields the text is matched against.
func (m TextMatch) Fields() []Field { return m.fields }

// Text returns the matched text.
func (m TextMatch) Text() string { return m.text }

// Operator returns the term join operator.
func (m TextMatch) Operator() Operator { return m.operator }

// Range constrains a numeric field to an inclusive interval.
// At least one bound is always present.
type Range struct {
	field Field
	min   *float64
	max   *float64
}

func (Range) body() {}

// NewRange validates and creates a Range.
func NewRange(field Field, min, max *float64) (Range, error) {
	if !field.IsValid() {
		return Range{}, fmt.Errorf("invalid field %q", field)
	}
	if min == nil && max == nil {
		return Range{}, fmt.Errorf("at least one range bound is required")
	}
	if min != nil && max != nil && *min > *max {
		return Range{}, fmt.Errorf("range min %v exceeds max %v", *min, *max)
	}
	return Range{field: field, min: min, max: max}, nil
}

// Field returns the constrained field.
func (r Range) Field() Field { return r.field }

// Min returns the inclusive lower bound, nil when open.
func (r Range) Min() *float64 { return r.min }

// Max returns the inclusive upper bound, nil when open.
func (r Range) Max() *float64 { return r.max }

// Bool combines sub-queries with boolean occurrence semantics.
type Bool struct {
	must    []Body
	mustNot []Body
	should  []Body
}

func (Bool) body() {}

// NewBool validates and creates a Bool.
func NewBool(must, mustNot, should []Body) (Bool, error) {
	if len(must) == 0 && len(mustNot) == 0 && len(should) == 0 {
		return Bool{}, fmt.Errorf("at least one bool clause is required")
	}
	return Bool{must: must, mustNot: mustNot, should: should}, nil
}

// Must returns the clauses every hit satisfies.
func (b Bool) Must() []Body { return b.must }

// MustNot returns the clauses no hit satisfies.
func (b Bool) MustNot() []Body { return b.mustNot }

// Should returns the optional, score-raising clauses.
func (b Bool) Should() []Body { return b.should }
