package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
)

// FallbackOptions configures the category-average fallback generator.
type FallbackOptions struct {
	MinTransactions   int
	MinMonthlyAverage float64
}

// DefaultFallbackOptions returns the standard thresholds: a category needs
// at least 2 transactions and €30/month of spend to earn a fallback
// suggestion.
func DefaultFallbackOptions() FallbackOptions {
	return FallbackOptions{
		MinTransactions:   2,
		MinMonthlyAverage: 30,
	}
}

// fallbackConfidence is fixed: a raw monthly average carries far less
// signal than a detected pattern.
const fallbackConfidence = 50

// FallbackGenerator proposes simple monthly-average suggestions for
// categories with material spending but no detected pattern.
type FallbackGenerator struct {
	stats  service.CategoryStats
	logger *slog.Logger
	opts   FallbackOptions
}

// NewFallbackGenerator creates a category-average fallback generator.
func NewFallbackGenerator(stats service.CategoryStats, opts FallbackOptions, logger *slog.Logger) *FallbackGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinTransactions <= 0 {
		opts.MinTransactions = DefaultFallbackOptions().MinTransactions
	}
	if opts.MinMonthlyAverage <= 0 {
		opts.MinMonthlyAverage = DefaultFallbackOptions().MinMonthlyAverage
	}
	return &FallbackGenerator{stats: stats, opts: opts, logger: logger}
}

// Generate emits low-confidence category-average suggestions for every
// qualifying category not in coveredCategoryIDs, sorted by monthly average
// descending.
func (g *FallbackGenerator) Generate(ctx context.Context, userID string, coveredCategoryIDs map[int]bool) ([]model.Suggestion, error) {
	categories, err := g.stats.Categories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var suggestions []model.Suggestion
	for _, category := range categories {
		if coveredCategoryIDs[category.ID] {
			continue
		}

		count, err := g.stats.TransactionCount(ctx, userID, category.ID)
		if err != nil {
			g.logger.Warn("transaction count lookup failed, skipping category",
				"category_id", category.ID,
				"error", err)
			continue
		}
		if count < g.opts.MinTransactions {
			continue
		}

		monthlyAvg, err := g.stats.MonthlyAverage(ctx, userID, category.ID)
		if err != nil {
			g.logger.Warn("monthly average lookup failed, skipping category",
				"category_id", category.ID,
				"error", err)
			continue
		}
		if monthlyAvg < g.opts.MinMonthlyAverage {
			continue
		}

		categoryID := category.ID
		suggestions = append(suggestions, model.Suggestion{
			ID:            uuid.NewString(),
			UserID:        userID,
			CategoryID:    &categoryID,
			CategoryName:  category.Name,
			Name:          category.Name,
			Description:   fmt.Sprintf("Average monthly spending in %s", category.Name),
			Source:        model.SourceCategoryAverage,
			Status:        model.SuggestionPending,
			ExpenseType:   model.ExpenseOtherFixed,
			MonthlyAmount: monthlyAvg,
			Confidence:    fallbackConfidence,
			CreatedAt:     time.Now(),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].MonthlyAmount != suggestions[j].MonthlyAmount {
			return suggestions[i].MonthlyAmount > suggestions[j].MonthlyAmount
		}
		return suggestions[i].CategoryName < suggestions[j].CategoryName
	})

	return suggestions, nil
}
