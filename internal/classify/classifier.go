// Package classify maps detected patterns to their economic nature using an
// external AI classifier under strict cost and rate budgets, with a
// deterministic rule-based fallback.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/coffeebudget/recurrent/internal/common"
	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
)

// Config holds configuration for the pattern classifier.
type Config struct {
	APIKey          string
	Model           string
	BatchSize       int
	ParallelBatches int
	DailyQuota      int
	MaxRetries      int
	RetryDelay      time.Duration
	CacheTTL        time.Duration
	CostPerToken    float64
}

// Result summarizes one classification run.
type Result struct {
	Classifications []model.ClassificationResult
	TokensUsed      int
	EstimatedCost   float64
	ProcessingTime  time.Duration
}

// Classifier assigns an expense type, essentiality, name and monthly
// contribution to every detected pattern. External failures never surface
// to the caller; they demote the affected batch to the rule-based path.
type Classifier struct {
	client    Client
	cache     Cache
	quota     QuotaTracker
	logger    *slog.Logger
	retryOpts service.RetryOptions
	batchSize int
	parallel  int
	costPer   float64
}

// NewClassifier creates a pattern classifier. A nil client (no API key
// configured) is valid: every pattern then takes the rule-based path.
func NewClassifier(client Client, cache Cache, quota QuotaTracker, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewMemoryCache(cfg.CacheTTL)
	}
	if quota == nil {
		quota = NewDailyQuota(cfg.DailyQuota)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	parallel := cfg.ParallelBatches
	if parallel <= 0 {
		parallel = 2
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts == 0 {
		retryOpts.MaxAttempts = 2
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:    client,
		cache:     cache,
		quota:     quota,
		logger:    logger,
		retryOpts: retryOpts,
		batchSize: batchSize,
		parallel:  parallel,
		costPer:   cfg.CostPerToken,
	}
}

// Classify maps every pattern to a classification result. The returned
// slice preserves input order, one entry per pattern.
func (c *Classifier) Classify(ctx context.Context, patterns []model.DetectedPattern) Result {
	start := time.Now()

	requests := make([]Request, len(patterns))
	for i := range patterns {
		requests[i] = requestFor(&patterns[i])
	}

	results := make([]model.ClassificationResult, len(requests))

	keys := make([]string, len(requests))
	for i, req := range requests {
		keys[i] = CacheKey(req.Merchant, req.Category, req.Frequency, req.AverageAmount)
	}

	// Serve cache hits first; only misses spend budget. Duplicate keys
	// among the misses collapse to one representative so a single run
	// never classifies, or bills quota for, the same request twice.
	var missIdx []int
	seen := make(map[string]int)
	dupes := make(map[int][]int)
	for i := range requests {
		if cached, found := c.cache.Get(keys[i]); found {
			cached.PatternID = requests[i].PatternID
			cached.Source = model.ClassifiedFromCache
			results[i] = cached
			continue
		}
		if first, ok := seen[keys[i]]; ok {
			dupes[first] = append(dupes[first], i)
			continue
		}
		seen[keys[i]] = i
		missIdx = append(missIdx, i)
	}

	tokensUsed := 0
	if c.client != nil && len(missIdx) > 0 {
		granted := c.quota.TryAcquire(len(missIdx))
		aiIdx := missIdx[:granted]
		ruleIdx := missIdx[granted:]

		if len(ruleIdx) > 0 {
			c.logger.Info("daily quota reached, demoting patterns to rule-based classification",
				"over_quota", len(ruleIdx))
		}

		tokensUsed = c.classifyBatches(ctx, requests, results, aiIdx)

		for _, i := range ruleIdx {
			results[i] = ClassifyByRules(requests[i])
		}
	} else {
		for _, i := range missIdx {
			results[i] = ClassifyByRules(requests[i])
		}
	}

	// Fan the representative's result out to its same-run duplicates.
	for first, rest := range dupes {
		for _, i := range rest {
			r := results[first]
			r.PatternID = requests[i].PatternID
			r.Source = model.ClassifiedFromCache
			results[i] = r
		}
	}

	// Cache everything produced this run, rule results included, so
	// identical patterns in later runs stay cheap.
	for i := range requests {
		if results[i].Source == model.ClassifiedFromCache {
			continue
		}
		c.cache.Set(keys[i], results[i])
	}

	return Result{
		Classifications: results,
		TokensUsed:      tokensUsed,
		EstimatedCost:   float64(tokensUsed) * c.costPer,
		ProcessingTime:  time.Since(start),
	}
}

// classifyBatches splits the given request indices into fixed-size batches
// and classifies them concurrently. Each batch is independently
// fallback-safe: a failure demotes only that batch to rule-based results.
func (c *Classifier) classifyBatches(ctx context.Context, requests []Request, results []model.ClassificationResult, idx []int) int {
	if len(idx) == 0 {
		return 0
	}

	var batches [][]int
	for start := 0; start < len(idx); start += c.batchSize {
		end := start + c.batchSize
		if end > len(idx) {
			end = len(idx)
		}
		batches = append(batches, idx[start:end])
	}

	sem := make(chan struct{}, c.parallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	tokensUsed := 0

	for _, batch := range batches {
		wg.Add(1)
		go func(batch []int) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				for _, i := range batch {
					results[i] = ClassifyByRules(requests[i])
				}
				return
			}

			batchReqs := make([]Request, len(batch))
			for j, i := range batch {
				batchReqs[j] = requests[i]
			}

			tokens, err := c.classifyBatch(ctx, batchReqs, results, batch)
			if err != nil {
				c.logger.Warn("batch classification failed, falling back to rules",
					"batch_size", len(batch),
					"error", err)
				for _, i := range batch {
					results[i] = ClassifyByRules(requests[i])
				}
				return
			}

			mu.Lock()
			tokensUsed += tokens
			mu.Unlock()
		}(batch)
	}

	wg.Wait()

	return tokensUsed
}

// classifyBatch performs one external call with retries and writes coerced
// results into the shared slice.
func (c *Classifier) classifyBatch(ctx context.Context, batchReqs []Request, results []model.ClassificationResult, batch []int) (int, error) {
	var response Response

	err := common.WithRetry(ctx, func() error {
		resp, err := c.client.ClassifyPatterns(ctx, batchReqs)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: true}
		}
		response = resp
		return nil
	}, c.retryOpts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrClassificationFailed, err)
	}

	byPattern := make(map[string]RawResult, len(response.Results))
	for _, raw := range response.Results {
		byPattern[raw.PatternID] = raw
	}

	for j, i := range batch {
		raw, ok := byPattern[batchReqs[j].PatternID]
		if !ok {
			// The provider dropped this pattern from its answer.
			results[i] = ClassifyByRules(batchReqs[j])
			continue
		}
		results[i] = coerce(raw, batchReqs[j])
	}

	return response.TokensUsed, nil
}

// coerce validates a provider result field by field, substituting safe
// defaults instead of rejecting the whole classification.
func coerce(raw RawResult, req Request) model.ClassificationResult {
	result := model.ClassificationResult{
		PatternID:     req.PatternID,
		Source:        model.ClassifiedByAI,
		SuggestedName: raw.SuggestedName,
		Reasoning:     raw.Reasoning,
		IsEssential:   raw.IsEssential,
	}

	if model.ValidExpenseType(raw.ExpenseType) {
		result.ExpenseType = model.ExpenseType(raw.ExpenseType)
	} else {
		result.ExpenseType = model.ExpenseOtherFixed
	}

	if result.SuggestedName == "" {
		result.SuggestedName = suggestedName(req)
	}

	switch {
	case !raw.ContributionValid || math.IsNaN(raw.MonthlyContribution) || math.IsInf(raw.MonthlyContribution, 0):
		result.MonthlyContribution = MonthlyContribution(req.AverageAmount, req.Frequency)
	case raw.MonthlyContribution < 0:
		result.MonthlyContribution = 0
	default:
		result.MonthlyContribution = math.Round(raw.MonthlyContribution*100) / 100
	}

	result.Confidence = raw.Confidence
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 100 {
		result.Confidence = 100
	}

	return result
}

// requestFor projects a detected pattern onto the classifier request shape.
func requestFor(pattern *model.DetectedPattern) Request {
	return Request{
		PatternID:     pattern.Group.ID,
		Merchant:      pattern.Group.MerchantName,
		Category:      pattern.Group.CategoryName,
		Description:   pattern.Group.Description,
		AverageAmount: pattern.Group.AverageAmount,
		Frequency:     pattern.Frequency.Type,
		Occurrences:   pattern.OccurrenceCount(),
	}
}
