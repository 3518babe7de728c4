// Package frequency turns the timing of a transaction group into a
// frequency classification with a calibrated confidence score.
package frequency

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
)

// InsufficientDataError is returned when fewer than two transactions are
// given to Analyze. Pattern detection filters groups before calling the
// analyzer, so hitting this from the pipeline is a programming error.
type InsufficientDataError struct {
	Count int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("frequency analysis requires at least 2 transactions, got %d", e.Count)
}

// Interval classification thresholds in days, inclusive.
const (
	maxWeeklyDays     = 10
	maxBiweeklyDays   = 17
	maxMonthlyDays    = 35
	maxQuarterlyDays  = 100
	maxSemiannualDays = 200
)

// Analyze computes interval statistics for a transaction group and derives
// its frequency type, confidence and next expected date. The input need not
// be sorted.
func Analyze(transactions []model.Transaction) (model.FrequencyPattern, error) {
	if len(transactions) < 2 {
		return model.FrequencyPattern{}, &InsufficientDataError{Count: len(transactions)}
	}

	sorted := make([]model.Transaction, len(transactions))
	copy(sorted, transactions)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt().Before(sorted[j].OccurredAt())
	})

	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].OccurredAt().Sub(sorted[i-1].OccurredAt()).Hours() / 24
		gaps = append(gaps, gap)
	}

	avgInterval := mean(gaps)
	stdDev := populationStdDev(gaps, avgInterval)

	// Coefficient of variation inverted into a percentage. A zero average
	// interval (same-day duplicates) carries no timing signal.
	var confidence float64
	if avgInterval > 0 {
		confidence = math.Max(0, math.Round(100-100*stdDev/avgInterval))
	}

	last := sorted[len(sorted)-1].OccurredAt()

	return model.FrequencyPattern{
		Type:             classifyInterval(avgInterval),
		IntervalDays:     int(math.Round(avgInterval)),
		Confidence:       confidence,
		NextExpectedDate: last.AddDate(0, 0, int(math.Round(avgInterval))),
		Occurrences:      len(transactions),
	}, nil
}

// IsWithinExpectedRange reports whether a date falls within toleranceDays
// of the pattern's next expected occurrence.
func IsWithinExpectedRange(date time.Time, pattern model.FrequencyPattern, toleranceDays int) bool {
	diff := math.Abs(date.Sub(pattern.NextExpectedDate).Hours() / 24)
	return diff <= float64(toleranceDays)
}

// OccurrenceBoost rewards extra evidence with a monotonic, capped bonus
// used in the detector's overall confidence blend.
func OccurrenceBoost(count int) float64 {
	switch {
	case count >= 6:
		return 20
	case count == 5:
		return 15
	case count == 4:
		return 10
	case count == 3:
		return 5
	default:
		return 0
	}
}

func classifyInterval(days float64) model.FrequencyType {
	switch {
	case days <= maxWeeklyDays:
		return model.FrequencyWeekly
	case days <= maxBiweeklyDays:
		return model.FrequencyBiweekly
	case days <= maxMonthlyDays:
		return model.FrequencyMonthly
	case days <= maxQuarterlyDays:
		return model.FrequencyQuarterly
	case days <= maxSemiannualDays:
		return model.FrequencySemiannual
	default:
		return model.FrequencyAnnual
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func populationStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
