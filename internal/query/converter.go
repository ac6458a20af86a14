package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SegmentConverter pairs a field's selector with its value conversion.
// Converters are plain data registered with a Compiler once at startup;
// conversion functions are pure.
type SegmentConverter struct {
	field    Field
	selector Selector
	convert  func(Segment) (Body, error)
}

// Field returns the field this converter serves.
func (c SegmentConverter) Field() Field { return c.field }

// Selector returns the selector rule.
func (c SegmentConverter) Selector() Selector { return c.selector }

// Claims reports whether the segment's selector addresses this converter.
func (c SegmentConverter) Claims(seg Segment) bool {
	return c.selector.Matches(seg.Selector)
}

// Convert builds the query node for a claimed segment.
func (c SegmentConverter) Convert(seg Segment) (Body, error) {
	return c.convert(seg)
}

// NewTextConverter returns a converter producing single-field text matches.
func NewTextConverter(field Field, sel Selector) SegmentConverter {
	return SegmentConverter{
		field:    field,
		selector: sel,
		convert: func(seg Segment) (Body, error) {
			return NewTextMatch().Fields(field).Text(seg.Value).Build()
		},
	}
}

// NewDurationConverter returns a converter producing duration ranges.
// Bounds are seconds; Go duration literals like "90m" are accepted too.
func NewDurationConverter(sel Selector) SegmentConverter {
	return SegmentConverter{
		field:    FieldDuration,
		selector: sel,
		convert:  rangeConvert(FieldDuration, parseDurationValue),
	}
}

// NewTimestampConverter returns a converter producing broadcast time
// ranges. Bounds are epoch seconds or calendar dates; a calendar date
// covers its whole day.
func NewTimestampConverter(sel Selector) SegmentConverter {
	return SegmentConverter{
		field:    FieldTimestamp,
		selector: sel,
		convert:  rangeConvert(FieldTimestamp, parseTimestampValue),
	}
}

// boundsSeparator splits the lower and upper bound of a range value.
const boundsSeparator = "-"

// valueParser interprets a single bound as an inclusive interval.
// Point values return lo == hi; calendar dates span their whole day.
type valueParser func(string) (lo, hi float64, err error)

// rangeConvert parses the "a", "a-b", "a-" and "-b" value forms into a
// Range node.
func rangeConvert(field Field, parse valueParser) func(Segment) (Body, error) {
	return func(seg Segment) (Body, error) {
		value := strings.TrimSpace(seg.Value)
		if value == "" {
			return nil, fmt.Errorf("empty value")
		}

		// A single value may itself contain the bounds separator
		// (dashed calendar dates), so try the whole value first.
		if lo, hi, err := parse(value); err == nil {
			r, err := NewRange(field, &lo, &hi)
			if err != nil {
				return nil, err
			}
			return r, nil
		}

		lower, upper, found := strings.Cut(value, boundsSeparator)
		lower = strings.TrimSpace(lower)
		upper = strings.TrimSpace(upper)
		if !found || (lower == "" && upper == "") {
			_, _, err := parse(value)
			return nil, err
		}

		var min, max *float64
		if lower != "" {
			lo, _, err := parse(lower)
			if err != nil {
				return nil, fmt.Errorf("lower bound: %w", err)
			}
			min = &lo
		}
		if upper != "" {
			_, hi, err := parse(upper)
			if err != nil {
				return nil, fmt.Errorf("upper bound: %w", err)
			}
			max = &hi
		}
		r, err := NewRange(field, min, max)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// parseDurationValue accepts bare seconds or a Go duration literal.
func parseDurationValue(s string) (float64, float64, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return 0, 0, fmt.Errorf("negative duration %q", s)
		}
		return n, n, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, 0, fmt.Errorf("negative duration %q", s)
		}
		return d.Seconds(), d.Seconds(), nil
	}
	return 0, 0, fmt.Errorf("invalid duration %q", s)
}

// timestampLayouts are the accepted calendar date forms.
var timestampLayouts = []string{"02.01.2006", "2006-01-02"}

// parseTimestampValue accepts epoch seconds or a calendar date.
// Dates are interpreted in UTC.
func parseTimestampValue(s string) (float64, float64, error) {
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n < 0 {
			return 0, 0, fmt.Errorf("negative timestamp %q", s)
		}
		return n, n, nil
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		lo := t.Unix()
		hi := t.AddDate(0, 0, 1).Unix() - 1
		return float64(lo), float64(hi), nil
	}
	return 0, 0, fmt.Errorf("invalid date %q", s)
}

// DefaultFields returns the fields selector-less segments match against.
func DefaultFields() []Field {
	return []Field{FieldTopic, FieldTitle}
}

// DefaultConverters returns the production converter table: canonical
// English names, German aliases and the single-character shortcuts.
func DefaultConverters() []SegmentConverter {
	return []SegmentConverter{
		NewTextConverter(FieldChannel, Selector{
			Canonical: Abbrev{Name: "channel"},
			Aliases:   []Abbrev{{Name: "sender"}},
			Symbols:   []string{"!"},
		}),
		NewTextConverter(FieldTopic, Selector{
			Canonical: Abbrev{Name: "topic", Min: 2},
			Aliases:   []Abbrev{{Name: "thema", Min: 2}},
			Symbols:   []string{"#"},
		}),
		NewTextConverter(FieldTitle, Selector{
			Canonical: Abbrev{Name: "title", Min: 3},
			Aliases:   []Abbrev{{Name: "titel", Min: 3}},
			Symbols:   []string{"+"},
		}),
		NewTextConverter(FieldDescription, Selector{
			Canonical: Abbrev{Name: "description", Min: 2},
			Aliases:   []Abbrev{{Name: "beschreibung"}},
			Symbols:   []string{"*"},
		}),
		NewDurationConverter(Selector{
			Canonical: Abbrev{Name: "duration", Min: 2},
			Aliases:   []Abbrev{{Name: "dauer", Min: 3}},
		}),
		NewTimestampConverter(Selector{
			Canonical: Abbrev{Name: "timestamp", Min: 3},
			Aliases:   []Abbrev{{Name: "datum", Min: 3}},
		}),
	}
}
