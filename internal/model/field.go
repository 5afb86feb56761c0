package model

import (
	"fmt"
	"time"
)

// FieldKind is the data type of a project custom field.
type FieldKind string

const (
	FieldKindNumber FieldKind = "number"
	FieldKindDate   FieldKind = "date"
)

// Valid reports whether k is a supported field kind.
func (k FieldKind) Valid() bool {
	return k == FieldKindNumber || k == FieldKindDate
}

// Signal names the activity metrics boardsync computes.
type Signal string

const (
	SignalDaysSinceUpdate              Signal = "days_since_update"
	SignalDaysSinceLastCommentOrReview Signal = "days_since_last_comment_or_review"
	SignalDaysSinceLastAuthorCommit    Signal = "days_since_last_author_commit"
)

// AllSignals lists the signals in write order.
var AllSignals = []Signal{
	SignalDaysSinceUpdate,
	SignalDaysSinceLastCommentOrReview,
	SignalDaysSinceLastAuthorCommit,
}

// FieldBinding maps a signal to a project field.
type FieldBinding struct {
	ID   string    `yaml:"id" json:"id"`
	Kind FieldKind `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// Bound reports whether the binding points at a field.
func (b FieldBinding) Bound() bool {
	return b.ID != ""
}

// FieldValue is a single scalar written to a project field.
// Exactly one of Number or Date is meaningful, selected by Kind.
type FieldValue struct {
	Kind   FieldKind
	Number float64
	Date   string
}

// NumberValue returns a numeric field value.
func NumberValue(n float64) FieldValue {
	return FieldValue{Kind: FieldKindNumber, Number: n}
}

// DateValue returns a date field value for t, formatted as YYYY-MM-DD in UTC.
func DateValue(t time.Time) FieldValue {
	return FieldValue{Kind: FieldKindDate, Date: t.UTC().Format(time.DateOnly)}
}

// String renders the value for logs and reports.
func (v FieldValue) String() string {
	if v.Kind == FieldKindDate {
		return v.Date
	}
	return fmt.Sprintf("%g", v.Number)
}

// FieldUpdate is one write to one field of one board item.
type FieldUpdate struct {
	ProjectID string
	ItemID    string
	FieldID   string
	Value     FieldValue
}
