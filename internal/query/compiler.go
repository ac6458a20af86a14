package query

import "fmt"

// Compiler turns raw search strings into query bodies using a fixed
// converter table. Safe for concurrent use.
type Compiler struct {
	converters    []SegmentConverter
	defaultFields []Field
}

// NewCompiler validates the converter table and creates a Compiler.
//
// Converters claim segments in registration order. Their selectors must
// not overlap: no token may address two different fields. Segments
// without a selector become text matches against defaultFields.
func NewCompiler(converters []SegmentConverter, defaultFields []Field) (*Compiler, error) {
	if len(converters) == 0 {
		return nil, fmt.Errorf("at least one converter is required")
	}
	if len(defaultFields) == 0 {
		return nil, fmt.Errorf("at least one default field is required")
	}
	for _, f := range defaultFields {
		if !f.IsValid() {
			return nil, fmt.Errorf("invalid default field %q", f)
		}
	}
	for _, c := range converters {
		if !c.field.IsValid() {
			return nil, fmt.Errorf("invalid converter field %q", c.field)
		}
		if c.convert == nil {
			return nil, fmt.Errorf("converter for %s has no conversion", c.field)
		}
		if err := c.selector.validate(); err != nil {
			return nil, fmt.Errorf("selector for %s: %w", c.field, err)
		}
	}
	for i, a := range converters {
		for _, b := range converters[i+1:] {
			if a.field == b.field {
				continue
			}
			if tok := overlap(a.selector, b.selector); tok != "" {
				return nil, fmt.Errorf("selector %q addresses both %s and %s", tok, a.field, b.field)
			}
		}
	}
	return &Compiler{
		converters:    append([]SegmentConverter(nil), converters...),
		defaultFields: append([]Field(nil), defaultFields...),
	}, nil
}

// Compile compiles input into a single query body.
//
// Non-negated segments land in must, negated ones in must_not. When the
// whole input yields exactly one non-negated node it is returned bare,
// without a Bool wrapper.
func (c *Compiler) Compile(input string) (Body, error) {
	segments, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, ErrEmptyQuery
	}

	var must, mustNot []Body
	for _, seg := range segments {
		node, err := c.convertSegment(seg)
		if err != nil {
			return nil, err
		}
		if seg.Negated {
			mustNot = append(mustNot, node)
		} else {
			must = append(must, node)
		}
	}

	if len(must) == 1 && len(mustNot) == 0 {
		return must[0], nil
	}
	return NewBool(must, mustNot, nil)
}

func (c *Compiler) convertSegment(seg Segment) (Body, error) {
	if seg.Selector == "" {
		node, err := NewTextMatch().Fields(c.defaultFields...).Text(seg.Value).Build()
		if err != nil {
			return nil, &ConversionError{Segment: seg.Raw, Cause: err}
		}
		return node, nil
	}
	for _, conv := range c.converters {
		if !conv.Claims(seg) {
			continue
		}
		node, err := conv.Convert(seg)
		if err != nil {
			return nil, &ConversionError{Field: conv.Field(), Segment: seg.Raw, Cause: err}
		}
		return node, nil
	}
	return nil, &UnknownSelectorError{Selector: seg.Selector, Segment: seg.Raw}
}
