package query

// Field identifies a searchable attribute of a media entry.
type Field string

// Searchable fields.
const (
	FieldChannel     Field = "channel"
	FieldTopic       Field = "topic"
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	// FieldDuration is the entry length in seconds.
	FieldDuration Field = "duration"
	// FieldTimestamp is the broadcast time in epoch seconds.
	FieldTimestamp Field = "timestamp"
)

// IsValid checks if the field is one of the supported values.
func (f Field) IsValid() bool {
	switch f {
	case FieldChannel, FieldTopic, FieldTitle, FieldDescription, FieldDuration, FieldTimestamp:
		return true
	}
	return false
}

// Operator is the join semantics for the terms of a text match.
type Operator string

// Text match operators.
const (
	// OperatorAnd requires every term to match.
	OperatorAnd Operator = "and"
	// OperatorOr requires at least one term to match.
	OperatorOr Operator = "or"
)

// IsValid checks if the operator is one of the supported values.
func (o Operator) IsValid() bool {
	return o == OperatorAnd || o == OperatorOr
}
