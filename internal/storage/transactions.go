package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/coffeebudget/recurrent/internal/model"
)

// statsWindowMonths is the trailing window every per-category statistic is
// computed over.
const statsWindowMonths = 12

// SaveTransactions stores the given transactions for a user. Re-imports are
// idempotent: a transaction whose id already exists is ignored.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, userID string, transactions []model.Transaction) error {
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, user_id, execution_date, description, merchant_name,
			category_id, category_name, amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if err := validateTransaction(txn); err != nil {
			return err
		}

		id := txn.ID
		if id == "" {
			id = transactionHash(userID, txn)
		}

		var executionDate any
		if txn.ExecutionDate != nil {
			executionDate = *txn.ExecutionDate
		}
		var categoryID any
		if txn.CategoryID != nil {
			categoryID = *txn.CategoryID
		}

		if _, err := stmt.ExecContext(ctx,
			id,
			userID,
			executionDate,
			txn.Description,
			txn.MerchantName,
			categoryID,
			txn.CategoryName,
			txn.Amount,
		); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// FetchSince returns a user's transactions dated on or after since,
// oldest first. Implements service.TransactionReader.
func (s *SQLiteStorage) FetchSince(ctx context.Context, userID string, since time.Time) ([]model.Transaction, error) {
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_date, description, merchant_name,
			category_id, category_name, amount, created_at
		FROM transactions
		WHERE user_id = ? AND COALESCE(execution_date, created_at) >= ?
		ORDER BY COALESCE(execution_date, created_at) ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn           model.Transaction
			executionDate sql.NullTime
			merchant      sql.NullString
			categoryID    sql.NullInt64
			categoryName  sql.NullString
		)
		if err := rows.Scan(&txn.ID, &executionDate, &txn.Description, &merchant,
			&categoryID, &categoryName, &txn.Amount, &txn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if executionDate.Valid {
			date := executionDate.Time
			txn.ExecutionDate = &date
		}
		txn.MerchantName = merchant.String
		txn.CategoryName = categoryName.String
		if categoryID.Valid {
			id := int(categoryID.Int64)
			txn.CategoryID = &id
		}
		transactions = append(transactions, txn)
	}

	return transactions, rows.Err()
}

// MonthlyAverage returns the trailing 12-month outgoing spend for the
// category divided by 12. Implements service.CategoryStats.
func (s *SQLiteStorage) MonthlyAverage(ctx context.Context, userID string, categoryID int) (float64, error) {
	since := time.Now().AddDate(0, -statsWindowMonths, 0)

	var total float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND category_id = ?
			AND COALESCE(execution_date, created_at) >= ?
	`, userID, categoryID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to compute category average: %w", err)
	}

	return total / statsWindowMonths, nil
}

// TransactionCount returns the number of transactions recorded for the
// category in the trailing 12 months. Implements service.CategoryStats.
func (s *SQLiteStorage) TransactionCount(ctx context.Context, userID string, categoryID int) (int, error) {
	since := time.Now().AddDate(0, -statsWindowMonths, 0)

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = ? AND category_id = ?
			AND COALESCE(execution_date, created_at) >= ?
	`, userID, categoryID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// Categories lists the categories the user transacted in over the trailing
// 12 months. Implements service.CategoryStats.
func (s *SQLiteStorage) Categories(ctx context.Context, userID string) ([]model.Category, error) {
	since := time.Now().AddDate(0, -statsWindowMonths, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT category_id, COALESCE(category_name, '')
		FROM transactions
		WHERE user_id = ? AND category_id IS NOT NULL
			AND COALESCE(execution_date, created_at) >= ?
		ORDER BY category_id
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var category model.Category
		if err := rows.Scan(&category.ID, &category.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// transactionHash derives a stable id for transactions imported without
// one, so the same statement line never imports twice.
func transactionHash(userID string, txn *model.Transaction) string {
	date := ""
	if txn.ExecutionDate != nil {
		date = txn.ExecutionDate.Format("2006-01-02")
	}
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%s|%.2f", userID, date, txn.Description, txn.Amount))
	return hex.EncodeToString(sum[:16])
}
