package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coffeebudget/recurrent/internal/model"
)

// GetPlans returns a user's expense plans, newest first. Implements
// service.PlanStore.
func (s *SQLiteStorage) GetPlans(ctx context.Context, userID string) ([]model.ExpensePlan, error) {
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, category_id, expense_type,
			monthly_amount, is_essential, created_at
		FROM expense_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plans []model.ExpensePlan
	for rows.Next() {
		var (
			plan       model.ExpensePlan
			categoryID sql.NullInt64
		)
		if err := rows.Scan(&plan.ID, &plan.UserID, &plan.Name, &categoryID,
			&plan.ExpenseType, &plan.MonthlyAmount, &plan.IsEssential, &plan.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		if categoryID.Valid {
			id := int(categoryID.Int64)
			plan.CategoryID = &id
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

// SavePlan stores one expense plan. Implements service.PlanStore.
func (s *SQLiteStorage) SavePlan(ctx context.Context, plan *model.ExpensePlan) error {
	if err := validateString(plan.ID, "plan.ID"); err != nil {
		return err
	}
	if err := validateString(plan.Name, "plan.Name"); err != nil {
		return err
	}

	var categoryID any
	if plan.CategoryID != nil {
		categoryID = *plan.CategoryID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expense_plans (
			id, user_id, name, category_id, expense_type,
			monthly_amount, is_essential, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, plan.ID, plan.UserID, plan.Name, categoryID,
		string(plan.ExpenseType), plan.MonthlyAmount, plan.IsEssential, plan.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert plan: %w", err)
	}

	return nil
}
