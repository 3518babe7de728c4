package model

import "time"

// ExpensePlan is an approved recurring budget entry. Plans are created when
// a suggestion is approved and are owned by the persistence layer; the
// analysis engine only reads them for deduplication.
type ExpensePlan struct {
	CreatedAt     time.Time
	CategoryID    *int
	ID            string
	UserID        string
	Name          string
	ExpenseType   ExpenseType
	MonthlyAmount float64
	IsEssential   bool
}
