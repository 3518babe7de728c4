package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coffeebudget/recurrent/internal/common"
	"github.com/coffeebudget/recurrent/internal/model"
)

// SaveSuggestions stores a batch of suggestions in one transaction.
// Implements service.SuggestionStore.
func (s *SQLiteStorage) SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO suggestions (
			id, user_id, category_id, category_name, name, description,
			source, status, expense_type, merchants, monthly_amount,
			confidence, discrepancy_pct, discrepancy_note,
			has_discrepancy_warning, is_essential, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range suggestions {
		suggestion := &suggestions[i]
		if err := validateSuggestion(suggestion); err != nil {
			return err
		}

		var categoryID any
		if suggestion.CategoryID != nil {
			categoryID = *suggestion.CategoryID
		}

		merchantsJSON := ""
		if len(suggestion.Merchants) > 0 {
			data, marshalErr := json.Marshal(suggestion.Merchants)
			if marshalErr != nil {
				return fmt.Errorf("failed to marshal merchants: %w", marshalErr)
			}
			merchantsJSON = string(data)
		}

		if _, err := stmt.ExecContext(ctx,
			suggestion.ID,
			suggestion.UserID,
			categoryID,
			suggestion.CategoryName,
			suggestion.Name,
			suggestion.Description,
			string(suggestion.Source),
			string(suggestion.Status),
			string(suggestion.ExpenseType),
			merchantsJSON,
			suggestion.MonthlyAmount,
			suggestion.Confidence,
			suggestion.DiscrepancyPct,
			suggestion.DiscrepancyNote,
			suggestion.HasDiscrepancyWarning,
			suggestion.IsEssential,
			suggestion.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert suggestion %s: %w", suggestion.ID, err)
		}
	}

	return tx.Commit()
}

// GetPendingSuggestions returns a user's pending suggestions, highest
// monthly amount first. Implements service.SuggestionStore.
func (s *SQLiteStorage) GetPendingSuggestions(ctx context.Context, userID string) ([]model.Suggestion, error) {
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, suggestionColumns+`
		FROM suggestions
		WHERE user_id = ? AND status = ?
		ORDER BY monthly_amount DESC, name ASC
	`, userID, string(model.SuggestionPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var suggestions []model.Suggestion
	for rows.Next() {
		suggestion, scanErr := scanSuggestion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		suggestions = append(suggestions, *suggestion)
	}

	return suggestions, rows.Err()
}

// GetSuggestionByID returns one suggestion, or common.ErrNotFound.
// Implements service.SuggestionStore.
func (s *SQLiteStorage) GetSuggestionByID(ctx context.Context, id string) (*model.Suggestion, error) {
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, suggestionColumns+`
		FROM suggestions
		WHERE id = ?
	`, id)

	suggestion, err := scanSuggestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}
	return suggestion, err
}

// UpdateSuggestionStatus transitions a suggestion's lifecycle state.
// Implements service.SuggestionStore.
func (s *SQLiteStorage) UpdateSuggestionStatus(ctx context.Context, id string, status model.SuggestionStatus) error {
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE suggestions SET status = ? WHERE id = ?
	`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("suggestion %s: %w", id, common.ErrNotFound)
	}

	return nil
}

const suggestionColumns = `
	SELECT id, user_id, category_id, category_name, name, description,
		source, status, expense_type, merchants, monthly_amount,
		confidence, discrepancy_pct, discrepancy_note,
		has_discrepancy_warning, is_essential, created_at
`

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (*model.Suggestion, error) {
	var (
		suggestion    model.Suggestion
		categoryID    sql.NullInt64
		categoryName  sql.NullString
		description   sql.NullString
		merchantsJSON sql.NullString
		note          sql.NullString
	)
	if err := row.Scan(
		&suggestion.ID,
		&suggestion.UserID,
		&categoryID,
		&categoryName,
		&suggestion.Name,
		&description,
		&suggestion.Source,
		&suggestion.Status,
		&suggestion.ExpenseType,
		&merchantsJSON,
		&suggestion.MonthlyAmount,
		&suggestion.Confidence,
		&suggestion.DiscrepancyPct,
		&note,
		&suggestion.HasDiscrepancyWarning,
		&suggestion.IsEssential,
		&suggestion.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan suggestion: %w", err)
	}

	if categoryID.Valid {
		id := int(categoryID.Int64)
		suggestion.CategoryID = &id
	}
	suggestion.CategoryName = categoryName.String
	suggestion.Description = description.String
	suggestion.DiscrepancyNote = note.String
	if merchantsJSON.String != "" {
		if err := json.Unmarshal([]byte(merchantsJSON.String), &suggestion.Merchants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal merchants: %w", err)
		}
	}

	return &suggestion, nil
}
