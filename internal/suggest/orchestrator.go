// Package suggest runs the full analysis pipeline and turns its output
// into persisted budget suggestions, deduplicated against what the user
// already has.
package suggest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coffeebudget/recurrent/internal/aggregate"
	"github.com/coffeebudget/recurrent/internal/classify"
	"github.com/coffeebudget/recurrent/internal/detector"
	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
)

// Report summarizes one analysis run for display.
type Report struct {
	Suggestions    []model.Suggestion
	PatternCount   int
	SkippedAsDupes int
	TokensUsed     int
	EstimatedCost  float64
	Duration       time.Duration
}

// Orchestrator wires detection, classification, aggregation and the
// category-average fallback into a single analysis run.
type Orchestrator struct {
	detector    *detector.Detector
	classifier  *classify.Classifier
	aggregator  *aggregate.Aggregator
	fallback    *aggregate.FallbackGenerator
	plans       service.PlanStore
	suggestions service.SuggestionStore
	logger      *slog.Logger
}

// New creates a suggestion orchestrator.
func New(
	det *detector.Detector,
	cls *classify.Classifier,
	agg *aggregate.Aggregator,
	fb *aggregate.FallbackGenerator,
	plans service.PlanStore,
	suggestions service.SuggestionStore,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		detector:    det,
		classifier:  cls,
		aggregator:  agg,
		fallback:    fb,
		plans:       plans,
		suggestions: suggestions,
		logger:      logger,
	}
}

// Run executes one full analysis for the criteria's user: detect patterns,
// classify them, aggregate by category, fill uncovered categories with
// average-based fallbacks, drop anything the user already budgets for, and
// persist the survivors as pending suggestions.
func (o *Orchestrator) Run(ctx context.Context, criteria detector.Criteria) (*Report, error) {
	start := time.Now()

	patterns, err := o.detector.Detect(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("pattern detection failed: %w", err)
	}
	o.logger.Info("pattern detection complete",
		"user_id", criteria.UserID,
		"patterns", len(patterns))

	result := o.classifier.Classify(ctx, patterns)

	aggregations, err := o.aggregator.Aggregate(ctx, criteria.UserID, patterns, result.Classifications)
	if err != nil {
		return nil, fmt.Errorf("category aggregation failed: %w", err)
	}

	byPattern := make(map[string]model.ClassificationResult, len(result.Classifications))
	for _, cls := range result.Classifications {
		byPattern[cls.PatternID] = cls
	}

	covered := make(map[int]bool, len(aggregations))
	candidates := make([]model.Suggestion, 0, len(aggregations))
	for _, agg := range aggregations {
		covered[agg.CategoryID] = true
		candidates = append(candidates, suggestionFromAggregation(criteria.UserID, agg, byPattern))
	}

	fallbacks, err := o.fallback.Generate(ctx, criteria.UserID, covered)
	if err != nil {
		return nil, fmt.Errorf("fallback generation failed: %w", err)
	}
	candidates = append(candidates, fallbacks...)

	kept, skipped, err := o.dedupe(ctx, criteria.UserID, candidates)
	if err != nil {
		return nil, err
	}

	if len(kept) > 0 {
		if err := o.suggestions.SaveSuggestions(ctx, kept); err != nil {
			return nil, fmt.Errorf("failed to save suggestions: %w", err)
		}
	}

	o.logger.Info("analysis run complete",
		"user_id", criteria.UserID,
		"suggestions", len(kept),
		"skipped_duplicates", skipped,
		"tokens_used", result.TokensUsed)

	return &Report{
		Suggestions:    kept,
		PatternCount:   len(patterns),
		SkippedAsDupes: skipped,
		TokensUsed:     result.TokensUsed,
		EstimatedCost:  result.EstimatedCost,
		Duration:       time.Since(start),
	}, nil
}

// Approve marks a pending suggestion approved and converts it into an
// expense plan.
func (o *Orchestrator) Approve(ctx context.Context, id string) (*model.ExpensePlan, error) {
	suggestion, err := o.suggestions.GetSuggestionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion %s: %w", id, err)
	}

	plan := &model.ExpensePlan{
		ID:            uuid.NewString(),
		UserID:        suggestion.UserID,
		Name:          suggestion.Name,
		CategoryID:    suggestion.CategoryID,
		ExpenseType:   suggestion.ExpenseType,
		MonthlyAmount: suggestion.MonthlyAmount,
		IsEssential:   suggestion.IsEssential,
		CreatedAt:     time.Now(),
	}
	if err := o.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save plan: %w", err)
	}
	if err := o.suggestions.UpdateSuggestionStatus(ctx, id, model.SuggestionApproved); err != nil {
		return nil, fmt.Errorf("failed to update suggestion status: %w", err)
	}

	o.logger.Info("suggestion approved",
		"suggestion_id", id,
		"plan_id", plan.ID,
		"monthly_amount", plan.MonthlyAmount)

	return plan, nil
}

// Reject marks a pending suggestion rejected.
func (o *Orchestrator) Reject(ctx context.Context, id string) error {
	if err := o.suggestions.UpdateSuggestionStatus(ctx, id, model.SuggestionRejected); err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	o.logger.Info("suggestion rejected", "suggestion_id", id)
	return nil
}

// dedupe drops candidates that collide with an existing plan or pending
// suggestion, matching on name (case-insensitive) or category. Survivors
// also claim their name and category against later candidates in the same
// batch.
func (o *Orchestrator) dedupe(ctx context.Context, userID string, candidates []model.Suggestion) ([]model.Suggestion, int, error) {
	plans, err := o.plans.GetPlans(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load plans: %w", err)
	}
	pending, err := o.suggestions.GetPendingSuggestions(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load pending suggestions: %w", err)
	}

	takenNames := make(map[string]bool)
	takenCategories := make(map[int]bool)
	for _, plan := range plans {
		takenNames[strings.ToLower(plan.Name)] = true
		if plan.CategoryID != nil {
			takenCategories[*plan.CategoryID] = true
		}
	}
	for _, s := range pending {
		takenNames[strings.ToLower(s.Name)] = true
		if s.CategoryID != nil {
			takenCategories[*s.CategoryID] = true
		}
	}

	var kept []model.Suggestion
	skipped := 0
	for _, candidate := range candidates {
		name := strings.ToLower(candidate.Name)
		if takenNames[name] || (candidate.CategoryID != nil && takenCategories[*candidate.CategoryID]) {
			skipped++
			o.logger.Debug("skipping duplicate suggestion",
				"name", candidate.Name,
				"source", candidate.Source)
			continue
		}
		takenNames[name] = true
		if candidate.CategoryID != nil {
			takenCategories[*candidate.CategoryID] = true
		}
		kept = append(kept, candidate)
	}

	return kept, skipped, nil
}

// suggestionFromAggregation turns a category aggregation into a pending
// pattern-based suggestion. The name comes from the primary pattern's
// classification when one exists.
func suggestionFromAggregation(userID string, agg model.CategoryAggregation, byPattern map[string]model.ClassificationResult) model.Suggestion {
	categoryID := agg.CategoryID

	name := agg.CategoryName
	expenseType := agg.ExpenseType
	if cls, ok := byPattern[agg.PrimaryPatternID]; ok && cls.SuggestedName != "" {
		name = cls.SuggestedName
	}

	return model.Suggestion{
		ID:                    uuid.NewString(),
		UserID:                userID,
		CategoryID:            &categoryID,
		CategoryName:          agg.CategoryName,
		Name:                  name,
		Description:           agg.Description,
		Source:                model.SourcePattern,
		Status:                model.SuggestionPending,
		ExpenseType:           expenseType,
		Merchants:             agg.Merchants,
		MonthlyAmount:         agg.WeightedMonthlyAverage,
		Confidence:            agg.AverageConfidence,
		DiscrepancyPct:        agg.DiscrepancyPct,
		DiscrepancyNote:       agg.DiscrepancyNote,
		HasDiscrepancyWarning: agg.HasDiscrepancyWarning,
		IsEssential:           agg.IsEssential,
		CreatedAt:             time.Now(),
	}
}
