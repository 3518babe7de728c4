// Package detector clusters a noisy transaction history into cohesive
// recurring groups and scores each group's pattern confidence.
package detector

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/coffeebudget/recurrent/internal/frequency"
	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
	"github.com/coffeebudget/recurrent/internal/similarity"
)

// Criteria configures one detection run.
type Criteria struct {
	UserID              string
	MonthsToAnalyze     int
	MinOccurrences      int
	MinConfidence       float64 // 0-100
	SimilarityThreshold float64 // 0-100
}

// DefaultCriteria returns sensible defaults for a detection run.
func DefaultCriteria(userID string) Criteria {
	return Criteria{
		UserID:              userID,
		MonthsToAnalyze:     12,
		MinOccurrences:      3,
		MinConfidence:       50,
		SimilarityThreshold: 70,
	}
}

const (
	// bucketPrefixLen truncates the normalized merchant for the coarse
	// bucket key. The key only needs to be a superset grouping; the scorer
	// refines within a bucket.
	bucketPrefixLen = 8

	// recentMemberSample bounds how many group members a candidate is
	// compared against, keeping clustering out of O(n^2).
	recentMemberSample = 5

	// cohesionPairBudget is the number of member pairs above which cohesion
	// switches from all pairs to a strategic sample.
	cohesionPairBudget = 15
)

// Detector finds recurring transaction patterns for a user.
type Detector struct {
	reader  service.TransactionReader
	logger  *slog.Logger
	weights similarity.Weights
}

// New creates a pattern detector reading history through the given reader.
func New(reader service.TransactionReader, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		reader:  reader,
		logger:  logger,
		weights: similarity.DefaultWeights(),
	}
}

// Detect runs the full detection pipeline and returns patterns sorted by
// overall confidence, descending.
func (d *Detector) Detect(ctx context.Context, criteria Criteria) ([]model.DetectedPattern, error) {
	since := time.Now().AddDate(0, -criteria.MonthsToAnalyze, 0)

	transactions, err := d.reader.FetchSince(ctx, criteria.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if len(transactions) < criteria.MinOccurrences {
		d.logger.Debug("too few transactions for detection",
			"user_id", criteria.UserID,
			"count", len(transactions))
		return nil, nil
	}

	groups := d.cluster(transactions, criteria.SimilarityThreshold)

	patterns := make([]model.DetectedPattern, 0, len(groups))
	for _, builder := range groups {
		if builder.size() < criteria.MinOccurrences {
			continue
		}

		group := builder.finalize()

		freq, err := frequency.Analyze(group.Transactions)
		if err != nil {
			// One bad group must never abort the whole run.
			d.logger.Warn("skipping group after frequency analysis failed",
				"group_id", group.ID,
				"merchant", group.MerchantName,
				"error", err)
			continue
		}

		pattern := d.buildPattern(group, freq)
		if pattern.Confidence.Overall < criteria.MinConfidence {
			continue
		}
		patterns = append(patterns, pattern)
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Confidence.Overall != patterns[j].Confidence.Overall {
			return patterns[i].Confidence.Overall > patterns[j].Confidence.Overall
		}
		return patterns[i].Group.ID < patterns[j].Group.ID
	})

	d.logger.Info("pattern detection complete",
		"user_id", criteria.UserID,
		"transactions", len(transactions),
		"patterns", len(patterns))

	return patterns, nil
}

// cluster partitions transactions into coarse buckets and refines each
// bucket into groups via bounded similarity comparisons.
func (d *Detector) cluster(transactions []model.Transaction, threshold float64) []*groupBuilder {
	buckets := make(map[string][]model.Transaction)
	bucketKeys := make([]string, 0)
	for _, txn := range transactions {
		key := bucketKey(&txn)
		if _, seen := buckets[key]; !seen {
			bucketKeys = append(bucketKeys, key)
		}
		buckets[key] = append(buckets[key], txn)
	}
	sort.Strings(bucketKeys)

	var groups []*groupBuilder
	groupSeq := 0

	for _, key := range bucketKeys {
		var bucketGroups []*groupBuilder

		for _, txn := range buckets[key] {
			joined := false
			for _, g := range bucketGroups {
				score := similarity.GroupSimilarity(&txn, g.recent(recentMemberSample), d.weights)
				if score >= threshold {
					g.add(txn)
					joined = true
					break
				}
			}
			if !joined {
				groupSeq++
				bucketGroups = append(bucketGroups, newGroupBuilder(fmt.Sprintf("group-%04d", groupSeq), txn))
			}
		}

		groups = append(groups, bucketGroups...)
	}

	return groups
}

// buildPattern blends cohesion, frequency confidence and the occurrence
// boost into an overall score.
func (d *Detector) buildPattern(group model.TransactionGroup, freq model.FrequencyPattern) model.DetectedPattern {
	cohesion := d.cohesion(group.Transactions)
	boost := frequency.OccurrenceBoost(group.Size())

	overall := math.Min(100, cohesion*0.4+freq.Confidence*0.6+boost)

	first, last := occurrenceSpan(group.Transactions)

	return model.DetectedPattern{
		Group:            group,
		Frequency:        freq,
		FirstOccurrence:  first,
		LastOccurrence:   last,
		NextExpectedDate: freq.NextExpectedDate,
		Confidence: model.ConfidenceBreakdown{
			Similarity: cohesion,
			Frequency:  freq.Confidence,
			Occurrence: boost,
			Overall:    overall,
		},
	}
}

// cohesion is the mean pairwise similarity among group members. Past the
// pair budget it scores a strategic sample instead of all pairs.
func (d *Detector) cohesion(members []model.Transaction) float64 {
	n := len(members)
	if n < 2 {
		return 0
	}

	totalPairs := n * (n - 1) / 2
	var pairs [][2]int

	if totalPairs <= cohesionPairBudget {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	} else {
		pairs = samplePairs(n)
	}

	var sum float64
	for _, p := range pairs {
		sum += similarity.Compare(&members[p[0]], &members[p[1]], d.weights).Total
	}

	return sum / float64(len(pairs))
}

// samplePairs picks a representative set of index pairs: the extremes, the
// first and last against a few neighbors, and evenly spaced consecutive
// pairs across the middle.
func samplePairs(n int) [][2]int {
	seen := make(map[[2]int]bool)
	var pairs [][2]int

	addPair := func(i, j int) {
		if i == j {
			return
		}
		if i > j {
			i, j = j, i
		}
		p := [2]int{i, j}
		if !seen[p] {
			seen[p] = true
			pairs = append(pairs, p)
		}
	}

	addPair(0, n-1)
	for k := 1; k <= 3 && k < n; k++ {
		addPair(0, k)
		addPair(n-1-k, n-1)
	}

	step := n / 5
	if step < 1 {
		step = 1
	}
	for i := 0; i+step < n; i += step {
		addPair(i, i+step)
	}

	return pairs
}

// bucketKey builds the coarse partition key: category id plus a loose
// merchant prefix.
func bucketKey(txn *model.Transaction) string {
	category := "none"
	if txn.CategoryID != nil {
		category = fmt.Sprintf("%d", *txn.CategoryID)
	}

	merchant := similarity.NormalizeMerchant(txn.MerchantName)
	if merchant == "" {
		merchant = similarity.NormalizeMerchant(txn.Description)
	}
	if len(merchant) > bucketPrefixLen {
		merchant = merchant[:bucketPrefixLen]
	}

	return category + "|" + merchant
}

func occurrenceSpan(transactions []model.Transaction) (first, last time.Time) {
	for i := range transactions {
		date := transactions[i].OccurredAt()
		if i == 0 || date.Before(first) {
			first = date
		}
		if i == 0 || date.After(last) {
			last = date
		}
	}
	return first, last
}
