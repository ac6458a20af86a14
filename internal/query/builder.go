package query

import (
	"fmt"
	"strings"
)

// TextMatchBuilder is a fluent builder for text match nodes.
type TextMatchBuilder struct {
	node TextMatch
}

// NewTextMatch starts building a text match. The operator defaults to and.
func NewTextMatch() *TextMatchBuilder {
	return &TextMatchBuilder{
		node: TextMatch{operator: OperatorAnd},
	}
}

// Fields adds target fields in match order.
func (b *TextMatchBuilder) Fields(fields ...Field) *TextMatchBuilder {
	b.node.fields = append(b.node.fields, fields...)
	return b
}

// Text sets the matched text. Surrounding whitespace is trimmed.
func (b *TextMatchBuilder) Text(text string) *TextMatchBuilder {
	b.node.text = strings.TrimSpace(text)
	return b
}

// Operator sets the term join operator.
func (b *TextMatchBuilder) Operator(op Operator) *TextMatchBuilder {
	b.node.operator = op
	return b
}

// Build validates and returns the text match node.
func (b *TextMatchBuilder) Build() (TextMatch, error) {
	if len(b.node.fields) == 0 {
		return TextMatch{}, fmt.Errorf("at least one field is required")
	}
	for _, f := range b.node.fields {
		if !f.IsValid() {
			return TextMatch{}, fmt.Errorf("invalid field %q", f)
		}
	}
	if b.node.text == "" {
		return TextMatch{}, fmt.Errorf("text is required")
	}
	if !b.node.operator.IsValid() {
		return TextMatch{}, fmt.Errorf("invalid operator %q", b.node.operator)
	}
	return b.node, nil
}

// MustBuild calls Build and panics on error.
func (b *TextMatchBuilder) MustBuild() TextMatch {
	node, err := b.Build()
	if err != nil {
		panic(err)
	}
	return node
}
