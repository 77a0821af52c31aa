package domain

import (
	"time"
)

// RawRecord is one candidate transaction lifted out of the XML export.
// Field values are verbatim text from the matched fragment; nil means no
// candidate source name produced a value. RawData keeps the serialized
// fragment for audit and debugging. A RawRecord is never mutated once the
// extractor hands it on.
type RawRecord struct {
	// Index is the fragment's position in the input document, used in
	// per-record error reporting.
	Index int

	ID        string
	Date      *string
	Amount    *string
	Phone     *string
	Message   *string
	Status    *string
	Type      *string
	Sender    *string
	Recipient *string
	Fee       *string
	Balance   *string

	RawData string
}

// NormalizedRecord carries the canonical form of every RawRecord field.
// It is only constructed when both Date and Amount survived normalization;
// anything else is dropped by the normalizer, never partially emitted.
type NormalizedRecord struct {
	ID        string
	Date      *time.Time
	Amount    *float64
	Fee       *float64
	Balance   *float64
	Phone     *string
	Message   *string
	Sender    *string
	Recipient *string
	Status    string
	Type      string

	RawData string

	NormalizedAt     time.Time
	NormalizeVersion string
}

// ClassifiedRecord is a NormalizedRecord plus the five derived labels.
// The labels are pure functions of the normalized fields and are read-only
// after assignment.
type ClassifiedRecord struct {
	NormalizedRecord

	Category     Category
	AmountRange  AmountRange
	TimeCategory TimeCategory
	RiskLevel    RiskLevel
	Region       string

	ClassifiedAt    time.Time
	ClassifyVersion string
}
