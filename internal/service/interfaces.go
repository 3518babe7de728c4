// Package service defines the interfaces between the analysis engine and
// its external collaborators.
package service

import (
	"context"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
)

// TransactionReader supplies the historical transactions for one analysis
// window. Implementations may return them in any order; callers sort where
// ordering matters.
type TransactionReader interface {
	FetchSince(ctx context.Context, userID string, since time.Time) ([]model.Transaction, error)
}

// CategoryStats exposes independently computed per-category spend figures,
// used by the discrepancy check and the category-average fallback.
type CategoryStats interface {
	// MonthlyAverage returns the trailing 12-month total spend for the
	// category divided by 12, as a positive figure.
	MonthlyAverage(ctx context.Context, userID string, categoryID int) (float64, error)
	// TransactionCount returns the number of transactions recorded for the
	// category in the trailing 12 months.
	TransactionCount(ctx context.Context, userID string, categoryID int) (int, error)
	// Categories lists the categories with at least one transaction for the
	// user in the trailing 12 months.
	Categories(ctx context.Context, userID string) ([]model.Category, error)
}

// SuggestionStore persists pending suggestions and their lifecycle.
type SuggestionStore interface {
	SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error
	GetPendingSuggestions(ctx context.Context, userID string) ([]model.Suggestion, error)
	GetSuggestionByID(ctx context.Context, id string) (*model.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error
}

// PlanStore reads and writes approved expense plans.
type PlanStore interface {
	GetPlans(ctx context.Context, userID string) ([]model.ExpensePlan, error)
	SavePlan(ctx context.Context, plan *model.ExpensePlan) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
