// Package aggregate merges per-merchant patterns that belong to the same
// spending category into single time-weighted suggestions, and proposes
// category-average fallbacks where no cohesive pattern was found.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
)

const (
	// daysPerMonth converts an occurrence span in days to months.
	daysPerMonth = 30.44

	// discrepancyThresholdPct is the relative difference between the
	// pattern-derived monthly figure and the independent category average
	// above which a warning is attached.
	discrepancyThresholdPct = 10.0

	// discrepancyCapPct bounds the reported percentage so it fits the
	// fixed-precision column it is stored in downstream.
	discrepancyCapPct = 999.99
)

// Aggregator merges same-category patterns and cross-checks them against
// independent category spend statistics.
type Aggregator struct {
	stats  service.CategoryStats
	logger *slog.Logger
}

// New creates a category aggregator.
func New(stats service.CategoryStats, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{stats: stats, logger: logger}
}

// Aggregate merges the given patterns by category id. Patterns without a
// category are not category-comparable and are excluded. Classifications
// are matched to patterns by pattern id.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, patterns []model.DetectedPattern, classifications []model.ClassificationResult) ([]model.CategoryAggregation, error) {
	byPattern := make(map[string]model.ClassificationResult, len(classifications))
	for _, cls := range classifications {
		byPattern[cls.PatternID] = cls
	}

	byCategory := make(map[int][]*model.DetectedPattern)
	var categoryIDs []int
	for i := range patterns {
		p := &patterns[i]
		if p.Group.CategoryID == nil {
			continue
		}
		id := *p.Group.CategoryID
		if _, seen := byCategory[id]; !seen {
			categoryIDs = append(categoryIDs, id)
		}
		byCategory[id] = append(byCategory[id], p)
	}
	sort.Ints(categoryIDs)

	aggregations := make([]model.CategoryAggregation, 0, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		agg := a.aggregateCategory(categoryID, byCategory[categoryID], byPattern)
		a.checkDiscrepancy(ctx, userID, &agg)
		aggregations = append(aggregations, agg)
	}

	return aggregations, nil
}

// aggregateCategory folds one category's patterns into a single
// time-weighted figure. Each pattern contributes its total spend over its
// own occurrence span; the aggregate monthly average is total spend over
// the summed spans, which always lands between the constituent patterns'
// individual monthly rates.
func (a *Aggregator) aggregateCategory(categoryID int, patterns []*model.DetectedPattern, byPattern map[string]model.ClassificationResult) model.CategoryAggregation {
	agg := model.CategoryAggregation{
		CategoryID:   categoryID,
		CategoryName: patterns[0].Group.CategoryName,
	}

	var confidenceSum float64
	seenMerchants := make(map[string]bool)

	// The highest-confidence pattern is the primary: its classification
	// decides the aggregate expense type and description.
	var primary *model.DetectedPattern

	for _, p := range patterns {
		agg.PatternIDs = append(agg.PatternIDs, p.Group.ID)
		confidenceSum += p.Confidence.Overall

		for i := range p.Group.Transactions {
			agg.TotalAmount += math.Abs(p.Group.Transactions[i].Amount)
		}
		agg.SpanMonths += patternSpanMonths(p)

		if name := p.Group.MerchantName; name != "" && !seenMerchants[name] {
			seenMerchants[name] = true
			agg.Merchants = append(agg.Merchants, name)
		}

		if cls, ok := byPattern[p.Group.ID]; ok && cls.IsEssential {
			agg.IsEssential = true
		}

		if primary == nil || p.Confidence.Overall > primary.Confidence.Overall {
			primary = p
		}
	}

	if agg.SpanMonths < 1 {
		agg.SpanMonths = 1
	}
	agg.WeightedMonthlyAverage = math.Round(agg.TotalAmount/agg.SpanMonths*100) / 100
	agg.AverageConfidence = math.Round(confidenceSum/float64(len(patterns))*100) / 100
	agg.Description = primary.Group.Description
	agg.PrimaryPatternID = primary.Group.ID

	if cls, ok := byPattern[primary.Group.ID]; ok {
		agg.ExpenseType = cls.ExpenseType
	} else {
		agg.ExpenseType = model.ExpenseOtherFixed
	}

	return agg
}

// checkDiscrepancy compares the aggregation's monthly figure against the
// independently computed category monthly average and attaches a warning
// when they diverge materially.
func (a *Aggregator) checkDiscrepancy(ctx context.Context, userID string, agg *model.CategoryAggregation) {
	categoryAvg, err := a.stats.MonthlyAverage(ctx, userID, agg.CategoryID)
	if err != nil {
		// The cross-check is advisory; a failed lookup never fails the run.
		a.logger.Warn("category average lookup failed, skipping discrepancy check",
			"category_id", agg.CategoryID,
			"error", err)
		return
	}
	if categoryAvg <= 0 {
		return
	}

	pct := math.Abs(agg.WeightedMonthlyAverage-categoryAvg) / categoryAvg * 100
	if pct > discrepancyCapPct {
		pct = discrepancyCapPct
	}
	pct = math.Round(pct*100) / 100

	if pct <= discrepancyThresholdPct {
		return
	}

	agg.HasDiscrepancyWarning = true
	agg.DiscrepancyPct = pct
	if agg.WeightedMonthlyAverage < categoryAvg {
		agg.DiscrepancyNote = fmt.Sprintf(
			"detected pattern amount (%.2f/month) is %.2f%% below the category average (%.2f/month); variable spending in this category may not be captured",
			agg.WeightedMonthlyAverage, pct, categoryAvg)
	} else {
		agg.DiscrepancyNote = fmt.Sprintf(
			"detected pattern amount (%.2f/month) is %.2f%% above the category average (%.2f/month); a one-off may be inflating the pattern",
			agg.WeightedMonthlyAverage, pct, categoryAvg)
	}
}

// patternSpanMonths converts a pattern's occurrence span to months,
// floored at one so a burst of same-day transactions never inflates its
// monthly rate.
func patternSpanMonths(p *model.DetectedPattern) float64 {
	days := p.LastOccurrence.Sub(p.FirstOccurrence).Hours() / 24
	months := days / daysPerMonth
	if months < 1 {
		return 1
	}
	return months
}
