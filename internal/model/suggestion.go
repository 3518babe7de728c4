package model

import "time"

// SuggestionSource tags how a suggestion was produced.
type SuggestionSource string

// Suggestion source constants.
const (
	SourcePattern         SuggestionSource = "pattern"
	SourceCategoryAverage SuggestionSource = "category_average"
)

// SuggestionStatus tracks a suggestion's lifecycle. The engine only ever
// creates pending suggestions; transitions happen on user review.
type SuggestionStatus string

// Suggestion status constants.
const (
	SuggestionPending  SuggestionStatus = "pending"
	SuggestionApproved SuggestionStatus = "approved"
	SuggestionRejected SuggestionStatus = "rejected"
)

// Suggestion is the final user-facing output of an analysis run: a proposed
// recurring budget entry with its confidence and provenance.
type Suggestion struct {
	CreatedAt             time.Time
	CategoryID            *int
	ID                    string
	UserID                string
	Name                  string
	CategoryName          string
	Description           string
	DiscrepancyNote       string
	Source                SuggestionSource
	Status                SuggestionStatus
	ExpenseType           ExpenseType
	Merchants             []string
	MonthlyAmount         float64
	Confidence            float64 // 0-100
	DiscrepancyPct        float64
	IsEssential           bool
	HasDiscrepancyWarning bool
}
