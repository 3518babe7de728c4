package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeebudget/recurrent/internal/common"
	"github.com/coffeebudget/recurrent/internal/model"
)

// createTestStorage opens a migrated database in a temp dir.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTxn(id, merchant, description string, categoryID int, categoryName string, amount float64, daysAgo int) model.Transaction {
	date := time.Now().AddDate(0, 0, -daysAgo)
	return model.Transaction{
		ID:            id,
		MerchantName:  merchant,
		Description:   description,
		CategoryID:    &categoryID,
		CategoryName:  categoryName,
		Amount:        amount,
		ExecutionDate: &date,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveAndFetchTransactions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	txns := []model.Transaction{
		testTxn("t1", "Netflix", "NETFLIX.COM", 1, "Entertainment", -15.99, 60),
		testTxn("t2", "Netflix", "NETFLIX.COM", 1, "Entertainment", -15.99, 30),
		testTxn("t3", "Esselunga", "POS ESSELUNGA", 2, "Groceries", -84.20, 10),
	}
	require.NoError(t, store.SaveTransactions(ctx, "user-1", txns))

	t.Run("fetch returns oldest first", func(t *testing.T) {
		got, err := store.FetchSince(ctx, "user-1", time.Now().AddDate(0, -12, 0))
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "t1", got[0].ID)
		assert.Equal(t, "t3", got[2].ID)
		assert.Equal(t, "Netflix", got[0].MerchantName)
		require.NotNil(t, got[0].CategoryID)
		assert.Equal(t, 1, *got[0].CategoryID)
		assert.Equal(t, "Entertainment", got[0].CategoryName)
	})

	t.Run("since filter excludes older transactions", func(t *testing.T) {
		got, err := store.FetchSince(ctx, "user-1", time.Now().AddDate(0, 0, -40))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "t2", got[0].ID)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		got, err := store.FetchSince(ctx, "user-2", time.Now().AddDate(0, -12, 0))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("re-import is idempotent", func(t *testing.T) {
		require.NoError(t, store.SaveTransactions(ctx, "user-1", txns))

		got, err := store.FetchSince(ctx, "user-1", time.Now().AddDate(0, -12, 0))
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("missing id gets a stable derived one", func(t *testing.T) {
		txn := testTxn("", "Coop", "POS COOP", 2, "Groceries", -42.50, 5)
		require.NoError(t, store.SaveTransactions(ctx, "user-1", []model.Transaction{txn}))
		require.NoError(t, store.SaveTransactions(ctx, "user-1", []model.Transaction{txn}))

		got, err := store.FetchSince(ctx, "user-1", time.Now().AddDate(0, -12, 0))
		require.NoError(t, err)
		assert.Len(t, got, 4)
	})
}

func TestCategoryStats(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	var txns []model.Transaction
	for i := 0; i < 12; i++ {
		txns = append(txns, testTxn(
			"groceries-"+time.Now().AddDate(0, 0, -30*i).Format("2006-01-02"),
			"Esselunga", "POS ESSELUNGA", 2, "Groceries", -120, 30*i+1))
	}
	// Salary is incoming and must not count toward spend averages.
	txns = append(txns, testTxn("salary-1", "ACME", "Stipendio", 9, "Income", 2500, 15))
	require.NoError(t, store.SaveTransactions(ctx, "user-1", txns))

	t.Run("monthly average is outgoing spend over twelve", func(t *testing.T) {
		avg, err := store.MonthlyAverage(ctx, "user-1", 2)
		require.NoError(t, err)
		assert.InDelta(t, 120, avg, 0.001)
	})

	t.Run("incoming amounts do not count as spend", func(t *testing.T) {
		avg, err := store.MonthlyAverage(ctx, "user-1", 9)
		require.NoError(t, err)
		assert.Zero(t, avg)
	})

	t.Run("unknown category averages zero", func(t *testing.T) {
		avg, err := store.MonthlyAverage(ctx, "user-1", 99)
		require.NoError(t, err)
		assert.Zero(t, avg)
	})

	t.Run("transaction count", func(t *testing.T) {
		count, err := store.TransactionCount(ctx, "user-1", 2)
		require.NoError(t, err)
		assert.Equal(t, 12, count)
	})

	t.Run("categories list", func(t *testing.T) {
		categories, err := store.Categories(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, categories, 2)
		assert.Equal(t, 2, categories[0].ID)
		assert.Equal(t, "Groceries", categories[0].Name)
		assert.Equal(t, 9, categories[1].ID)
	})
}

func TestSuggestionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	categoryID := 1
	suggestions := []model.Suggestion{
		{
			ID:            "sug-1",
			UserID:        "user-1",
			CategoryID:    &categoryID,
			CategoryName:  "Entertainment",
			Name:          "Netflix",
			Description:   "NETFLIX.COM subscription",
			Source:        model.SourcePattern,
			Status:        model.SuggestionPending,
			ExpenseType:   model.ExpenseSubscription,
			Merchants:     []string{"Netflix"},
			MonthlyAmount: 15.99,
			Confidence:    92.5,
			CreatedAt:     time.Now(),
		},
		{
			ID:            "sug-2",
			UserID:        "user-1",
			Name:          "Dining",
			Source:        model.SourceCategoryAverage,
			Status:        model.SuggestionPending,
			ExpenseType:   model.ExpenseOtherFixed,
			MonthlyAmount: 120,
			Confidence:    50,
			CreatedAt:     time.Now(),
		},
	}
	require.NoError(t, store.SaveSuggestions(ctx, suggestions))

	t.Run("pending listed highest amount first", func(t *testing.T) {
		pending, err := store.GetPendingSuggestions(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "sug-2", pending[0].ID)
		assert.Equal(t, "sug-1", pending[1].ID)
		assert.Equal(t, []string{"Netflix"}, pending[1].Merchants)
		require.NotNil(t, pending[1].CategoryID)
		assert.Equal(t, 1, *pending[1].CategoryID)
	})

	t.Run("get by id round-trips fields", func(t *testing.T) {
		got, err := store.GetSuggestionByID(ctx, "sug-1")
		require.NoError(t, err)
		assert.Equal(t, model.SourcePattern, got.Source)
		assert.Equal(t, model.ExpenseSubscription, got.ExpenseType)
		assert.InDelta(t, 15.99, got.MonthlyAmount, 0.001)
		assert.InDelta(t, 92.5, got.Confidence, 0.001)
	})

	t.Run("get unknown id returns not found", func(t *testing.T) {
		_, err := store.GetSuggestionByID(ctx, "missing")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("status update removes from pending", func(t *testing.T) {
		require.NoError(t, store.UpdateSuggestionStatus(ctx, "sug-2", model.SuggestionRejected))

		pending, err := store.GetPendingSuggestions(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "sug-1", pending[0].ID)
	})

	t.Run("status update of unknown id returns not found", func(t *testing.T) {
		err := store.UpdateSuggestionStatus(ctx, "missing", model.SuggestionApproved)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("invalid suggestion rejected", func(t *testing.T) {
		err := store.SaveSuggestions(ctx, []model.Suggestion{{ID: "bad", Name: "x", Source: "nonsense"}})
		assert.ErrorIs(t, err, ErrInvalidSuggestion)
	})
}

func TestPlans(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	categoryID := 1
	plan := &model.ExpensePlan{
		ID:            "plan-1",
		UserID:        "user-1",
		Name:          "Netflix",
		CategoryID:    &categoryID,
		ExpenseType:   model.ExpenseSubscription,
		MonthlyAmount: 15.99,
		CreatedAt:     time.Now(),
	}
	require.NoError(t, store.SavePlan(ctx, plan))

	plans, err := store.GetPlans(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Netflix", plans[0].Name)
	require.NotNil(t, plans[0].CategoryID)
	assert.Equal(t, 1, *plans[0].CategoryID)

	other, err := store.GetPlans(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEnsureCategory(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	id1, err := store.EnsureCategory(ctx, "Groceries")
	require.NoError(t, err)
	id2, err := store.EnsureCategory(ctx, "Groceries")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	id3, err := store.EnsureCategory(ctx, "Utilities")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Groceries", categories[0].Name)
	assert.Equal(t, "Utilities", categories[1].Name)
}
