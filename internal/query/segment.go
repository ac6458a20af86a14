package query

import (
	"strings"
	"unicode"
)

// Query string syntax characters.
const (
	separatorChar = ':'
	negationChar  = '-'
	quoteChar     = '"'
	escapeChar    = '\\'
)

// Segment is one whitespace-delimited unit of a raw search string,
// with quoting and escaping already resolved.
type Segment struct {
	// Raw is the segment text exactly as typed, kept for diagnostics.
	Raw string
	// Selector is the field-addressing token before the separator.
	// Empty when the segment has no selector.
	Selector string
	// Value is the segment text after the separator, or the whole
	// segment when no selector is present.
	Value string
	// Negated reports a leading negation marker, stripped from Value.
	Negated bool
}

// Tokenize splits input into ordered segments.
//
// Segments are separated by unquoted whitespace. Inside a quoted span
// whitespace, separators and negation markers lose their meaning. The
// escape character makes the next character literal, inside and outside
// quotes. A negation marker only counts at the very start of a segment,
// and only the first unquoted separator splits selector from value.
// Segments that carry neither selector nor value are dropped.
func Tokenize(input string) ([]Segment, error) {
	runes := []rune(input)
	var segments []Segment

	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		if i >= len(runes) {
			break
		}

		var (
			start    = i
			value    strings.Builder
			selector string
			hasSel   bool
			negated  bool
			inQuote  bool
		)
		for i < len(runes) {
			ch := runes[i]
			if inQuote {
				switch ch {
				case escapeChar:
					if i+1 < len(runes) {
						i++
						value.WriteRune(runes[i])
					}
				case quoteChar:
					inQuote = false
				default:
					value.WriteRune(ch)
				}
				i++
				continue
			}
			if unicode.IsSpace(ch) {
				break
			}
			switch {
			case ch == escapeChar:
				if i+1 < len(runes) {
					i++
					value.WriteRune(runes[i])
				} else {
					value.WriteRune(ch)
				}
			case ch == quoteChar:
				inQuote = true
			case ch == negationChar && i == start:
				negated = true
			case ch == separatorChar && !hasSel:
				selector = value.String()
				value.Reset()
				hasSel = true
			default:
				value.WriteRune(ch)
			}
			i++
		}
		if inQuote {
			return nil, &SyntaxError{Input: input, Pos: start, Reason: "unterminated quote"}
		}

		seg := Segment{
			Raw:      string(runes[start:i]),
			Selector: selector,
			Value:    value.String(),
			Negated:  negated,
		}
		if seg.Selector == "" && seg.Value == "" {
			continue
		}
		segments = append(segments, seg)
	}

	return segments, nil
}
