package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader returns a canned transaction history.
type fakeReader struct {
	transactions []model.Transaction
	err          error
}

func (r *fakeReader) FetchSince(_ context.Context, _ string, _ time.Time) ([]model.Transaction, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.transactions, nil
}

func monthlyTxns(merchant, description string, categoryID int, amount float64, count int) []model.Transaction {
	start := time.Now().AddDate(0, -count, 0)
	txns := make([]model.Transaction, 0, count)
	for i := 0; i < count; i++ {
		date := start.AddDate(0, i, 0)
		id := categoryID
		txns = append(txns, model.Transaction{
			ID:            merchant + "-" + date.Format("2006-01"),
			MerchantName:  merchant,
			Description:   description,
			CategoryID:    &id,
			Amount:        amount,
			ExecutionDate: &date,
		})
	}
	return txns
}

func TestDetect(t *testing.T) {
	ctx := context.Background()

	t.Run("reader error propagates", func(t *testing.T) {
		d := New(&fakeReader{err: errors.New("boom")}, nil)

		_, err := d.Detect(ctx, DefaultCriteria("user-1"))
		require.Error(t, err)
	})

	t.Run("too few transactions returns empty", func(t *testing.T) {
		d := New(&fakeReader{transactions: monthlyTxns("Netflix", "NETFLIX.COM", 3, -15.99, 2)}, nil)

		criteria := DefaultCriteria("user-1")
		criteria.MinOccurrences = 3

		patterns, err := d.Detect(ctx, criteria)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("twelve monthly subscriptions form one pattern", func(t *testing.T) {
		d := New(&fakeReader{transactions: monthlyTxns("Netflix", "NETFLIX.COM subscription", 3, -15.99, 12)}, nil)

		patterns, err := d.Detect(ctx, DefaultCriteria("user-1"))
		require.NoError(t, err)
		require.Len(t, patterns, 1)

		p := patterns[0]
		assert.Equal(t, model.FrequencyMonthly, p.Frequency.Type)
		assert.Equal(t, 12, p.OccurrenceCount())
		assert.Equal(t, "Netflix", p.Group.MerchantName)
		assert.InDelta(t, -15.99, p.Group.AverageAmount, 0.001)
		require.NotNil(t, p.Group.CategoryID)
		assert.Equal(t, 3, *p.Group.CategoryID)
		assert.GreaterOrEqual(t, p.Confidence.Overall, 50.0)
		assert.Equal(t, 20.0, p.Confidence.Occurrence)
		assert.True(t, p.LastOccurrence.After(p.FirstOccurrence))
	})

	t.Run("unrelated merchants are not merged", func(t *testing.T) {
		txns := append(
			monthlyTxns("Netflix", "NETFLIX.COM subscription", 3, -15.99, 6),
			monthlyTxns("ACME Corp", "salary payment", 1, 2500, 6)...)

		d := New(&fakeReader{transactions: txns}, nil)

		patterns, err := d.Detect(ctx, DefaultCriteria("user-1"))
		require.NoError(t, err)
		require.Len(t, patterns, 2)

		merchants := []string{patterns[0].Group.MerchantName, patterns[1].Group.MerchantName}
		assert.ElementsMatch(t, []string{"Netflix", "ACME Corp"}, merchants)
	})

	t.Run("groups below min occurrences are dropped", func(t *testing.T) {
		txns := append(
			monthlyTxns("Netflix", "NETFLIX.COM subscription", 3, -15.99, 6),
			monthlyTxns("One-off Store", "single purchase", 9, -42, 2)...)

		d := New(&fakeReader{transactions: txns}, nil)

		criteria := DefaultCriteria("user-1")
		criteria.MinOccurrences = 3

		patterns, err := d.Detect(ctx, criteria)
		require.NoError(t, err)
		require.Len(t, patterns, 1)
		assert.Equal(t, "Netflix", patterns[0].Group.MerchantName)
	})

	t.Run("patterns sorted by confidence descending", func(t *testing.T) {
		// Regular monthly subscription vs jittery store visits.
		jittery := monthlyTxns("Corner Shop", "groceries", 2, -30, 6)
		for i := range jittery {
			date := jittery[i].ExecutionDate.AddDate(0, 0, (i*11)%17)
			jittery[i].ExecutionDate = &date
		}
		txns := append(monthlyTxns("Netflix", "NETFLIX.COM subscription", 3, -15.99, 6), jittery...)

		d := New(&fakeReader{transactions: txns}, nil)

		criteria := DefaultCriteria("user-1")
		criteria.MinConfidence = 0

		patterns, err := d.Detect(ctx, criteria)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(patterns), 2)

		for i := 1; i < len(patterns); i++ {
			assert.GreaterOrEqual(t, patterns[i-1].Confidence.Overall, patterns[i].Confidence.Overall)
		}
	})

	t.Run("low confidence patterns are filtered", func(t *testing.T) {
		jittery := monthlyTxns("Corner Shop", "groceries", 2, -30, 6)
		for i := range jittery {
			date := jittery[i].ExecutionDate.AddDate(0, 0, (i*13)%23)
			jittery[i].ExecutionDate = &date
		}

		d := New(&fakeReader{transactions: jittery}, nil)

		criteria := DefaultCriteria("user-1")
		criteria.MinConfidence = 99

		patterns, err := d.Detect(ctx, criteria)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})
}

func TestCohesion(t *testing.T) {
	d := New(&fakeReader{}, nil)

	t.Run("identical members are fully cohesive", func(t *testing.T) {
		members := monthlyTxns("Netflix", "NETFLIX.COM", 3, -15.99, 4)
		assert.InDelta(t, 100.0, d.cohesion(members), 0.001)
	})

	t.Run("single member has no cohesion", func(t *testing.T) {
		members := monthlyTxns("Netflix", "NETFLIX.COM", 3, -15.99, 1)
		assert.Zero(t, d.cohesion(members))
	})

	t.Run("large groups use the pair sample", func(t *testing.T) {
		members := monthlyTxns("Netflix", "NETFLIX.COM", 3, -15.99, 24)
		// 24 members is 276 pairs, far past the budget; the sampled score
		// must still be exact for a perfectly homogeneous group.
		assert.InDelta(t, 100.0, d.cohesion(members), 0.001)
	})
}

func TestBucketKey(t *testing.T) {
	catID := 2
	txn := model.Transaction{MerchantName: "Esselunga Milano 42", CategoryID: &catID}
	assert.Equal(t, "2|esselung", bucketKey(&txn))

	noCategory := model.Transaction{MerchantName: "Coop"}
	assert.Equal(t, "none|coop", bucketKey(&noCategory))

	noMerchant := model.Transaction{Description: "POS payment 1234"}
	assert.Equal(t, "none|pospayme", bucketKey(&noMerchant))
}
