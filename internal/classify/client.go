package classify

import (
	"context"

	"github.com/coffeebudget/recurrent/internal/model"
)

// Request carries the facts about one detected pattern that the external
// classifier needs.
type Request struct {
	PatternID     string
	Merchant      string
	Category      string
	Description   string
	Frequency     model.FrequencyType
	AverageAmount float64
	Occurrences   int
}

// RawResult is one classification as returned by a provider, before
// per-field validation and coercion.
type RawResult struct {
	PatternID           string
	ExpenseType         string
	SuggestedName       string
	Reasoning           string
	MonthlyContribution float64
	Confidence          float64
	IsEssential         bool
	ContributionValid   bool
}

// Response is a provider's answer to one batch.
type Response struct {
	Results    []RawResult
	TokensUsed int
}

// Client defines the interface for external AI classification providers.
type Client interface {
	ClassifyPatterns(ctx context.Context, requests []Request) (Response, error)
}
