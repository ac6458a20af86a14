package query

import (
	"errors"
	"fmt"
)

var (
	// ErrBadSyntax signals a search string the tokenizer cannot parse.
	ErrBadSyntax = errors.New("malformed search string")
	// ErrUnknownSelector signals a selector no registered field recognizes.
	ErrUnknownSelector = errors.New("unknown selector")
	// ErrBadValue signals a value the addressed field cannot interpret.
	ErrBadValue = errors.New("invalid field value")
	// ErrEmptyQuery signals a search string with no usable segments.
	ErrEmptyQuery = errors.New("empty query")
)

// SyntaxError wraps ErrBadSyntax with the offending position.
type SyntaxError struct {
	Input  string
	Pos    int // rune offset of the offending token
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s at offset %d", ErrBadSyntax.Error(), e.Reason, e.Pos)
}

func (e *SyntaxError) Unwrap() error { return ErrBadSyntax }

// UnknownSelectorError wraps ErrUnknownSelector with the rejected segment.
type UnknownSelectorError struct {
	Selector string
	Segment  string // raw segment text as typed
}

func (e *UnknownSelectorError) Error() string {
	return fmt.Sprintf("%s %q in segment %q", ErrUnknownSelector.Error(), e.Selector, e.Segment)
}

func (e *UnknownSelectorError) Unwrap() error { return ErrUnknownSelector }

// ConversionError wraps ErrBadValue with the claiming field and the
// raw text of the segment that failed to convert. Field is empty for
// segments matched against the default fields.
type ConversionError struct {
	Field   Field
	Segment string
	Cause   error
}

func (e *ConversionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s in segment %q: %v", ErrBadValue.Error(), e.Segment, e.Cause)
	}
	return fmt.Sprintf("%s for %s in segment %q: %v", ErrBadValue.Error(), e.Field, e.Segment, e.Cause)
}

func (e *ConversionError) Unwrap() error { return ErrBadValue }
