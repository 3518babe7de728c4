package frequency

import (
	"errors"
	"testing"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func txnOnDay(day int) model.Transaction {
	date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
	return model.Transaction{
		ID:            "txn",
		ExecutionDate: &date,
		Amount:        -15.99,
	}
}

func txnsAtDays(days ...int) []model.Transaction {
	txns := make([]model.Transaction, 0, len(days))
	for _, d := range days {
		txns = append(txns, txnOnDay(d))
	}
	return txns
}

func TestAnalyze(t *testing.T) {
	t.Run("fewer than two transactions fails", func(t *testing.T) {
		_, err := Analyze(txnsAtDays(0))
		require.Error(t, err)

		var insufficientErr *InsufficientDataError
		require.True(t, errors.As(err, &insufficientErr))
		assert.Equal(t, 1, insufficientErr.Count)
	})

	t.Run("evenly spaced weekly transactions", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(0, 7, 14, 21))
		require.NoError(t, err)

		assert.Equal(t, model.FrequencyWeekly, pattern.Type)
		assert.Equal(t, 7, pattern.IntervalDays)
		assert.Greater(t, pattern.Confidence, 90.0)
		assert.Equal(t, 4, pattern.Occurrences)

		want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 28)
		assert.Equal(t, want, pattern.NextExpectedDate)
	})

	t.Run("unsorted input is sorted internally", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(14, 0, 21, 7))
		require.NoError(t, err)

		assert.Equal(t, model.FrequencyWeekly, pattern.Type)
		assert.Equal(t, 7, pattern.IntervalDays)
	})

	t.Run("irregular intervals lower confidence", func(t *testing.T) {
		even, err := Analyze(txnsAtDays(0, 7, 14, 21))
		require.NoError(t, err)

		irregular, err := Analyze(txnsAtDays(0, 7, 20, 25))
		require.NoError(t, err)

		assert.Less(t, irregular.Confidence, even.Confidence)
	})

	t.Run("monthly intervals classify monthly", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(0, 30, 61, 91))
		require.NoError(t, err)

		assert.Equal(t, model.FrequencyMonthly, pattern.Type)
	})

	t.Run("quarterly intervals classify quarterly", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(0, 91, 182, 273))
		require.NoError(t, err)

		assert.Equal(t, model.FrequencyQuarterly, pattern.Type)
		assert.Equal(t, 91, pattern.IntervalDays)
	})

	t.Run("long gaps classify annual", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(0, 365, 730))
		require.NoError(t, err)

		assert.Equal(t, model.FrequencyAnnual, pattern.Type)
	})

	t.Run("same-day duplicates yield zero confidence", func(t *testing.T) {
		pattern, err := Analyze(txnsAtDays(5, 5, 5))
		require.NoError(t, err)

		assert.Zero(t, pattern.Confidence)
		assert.Zero(t, pattern.IntervalDays)
	})
}

func TestClassifyInterval(t *testing.T) {
	tests := []struct {
		days float64
		want model.FrequencyType
	}{
		{7, model.FrequencyWeekly},
		{10, model.FrequencyWeekly},
		{11, model.FrequencyBiweekly},
		{17, model.FrequencyBiweekly},
		{18, model.FrequencyMonthly},
		{35, model.FrequencyMonthly},
		{36, model.FrequencyQuarterly},
		{100, model.FrequencyQuarterly},
		{101, model.FrequencySemiannual},
		{200, model.FrequencySemiannual},
		{201, model.FrequencyAnnual},
		{365, model.FrequencyAnnual},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyInterval(tt.days), "classifyInterval(%v)", tt.days)
	}
}

func TestIsWithinExpectedRange(t *testing.T) {
	pattern := model.FrequencyPattern{
		NextExpectedDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, IsWithinExpectedRange(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), pattern, 7))
	assert.True(t, IsWithinExpectedRange(time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC), pattern, 7))
	assert.True(t, IsWithinExpectedRange(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), pattern, 7))
	assert.False(t, IsWithinExpectedRange(time.Date(2025, 6, 23, 0, 0, 0, 0, time.UTC), pattern, 7))
	assert.False(t, IsWithinExpectedRange(time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), pattern, 7))
}

func TestOccurrenceBoost(t *testing.T) {
	assert.Zero(t, OccurrenceBoost(2))
	assert.Equal(t, 5.0, OccurrenceBoost(3))
	assert.Equal(t, 10.0, OccurrenceBoost(4))
	assert.Equal(t, 15.0, OccurrenceBoost(5))
	assert.Equal(t, 20.0, OccurrenceBoost(6))
	assert.Equal(t, 20.0, OccurrenceBoost(50))

	// Monotonic non-decreasing
	prev := 0.0
	for count := 2; count <= 20; count++ {
		boost := OccurrenceBoost(count)
		assert.GreaterOrEqual(t, boost, prev)
		prev = boost
	}
}
