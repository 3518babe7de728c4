package model

import "time"

// TransactionGroup is a cluster of transactions believed to represent one
// recurring economic event, plus statistics derived from its members.
type TransactionGroup struct {
	ID            string
	MerchantName  string // most frequent merchant among members
	CategoryName  string
	Description   string // representative description
	CategoryID    *int // dominant category, nil when members carry none
	Transactions  []Transaction
	AverageAmount float64
}

// Size returns the number of member transactions.
func (g *TransactionGroup) Size() int {
	return len(g.Transactions)
}

// ConfidenceBreakdown records the components that produced a pattern's
// overall confidence score.
type ConfidenceBreakdown struct {
	Similarity float64 // group cohesion, 0-100
	Frequency  float64 // interval regularity, 0-100
	Occurrence float64 // evidence boost, 0-20
	Overall    float64 // blended, 0-100
}

// DetectedPattern is the unit handed to classification and aggregation: one
// recurring group together with its timing and confidence.
type DetectedPattern struct {
	FirstOccurrence  time.Time
	LastOccurrence   time.Time
	NextExpectedDate time.Time
	Frequency        FrequencyPattern
	Group            TransactionGroup
	Confidence       ConfidenceBreakdown
}

// OccurrenceCount returns the number of transactions backing the pattern.
func (p *DetectedPattern) OccurrenceCount() int {
	return p.Group.Size()
}
