// Package model defines the core domain models used throughout the application.
package model

import "time"

// Transaction represents a single historical financial transaction.
// Transactions are read-only inputs to an analysis run.
type Transaction struct {
	ExecutionDate *time.Time
	CreatedAt     time.Time
	CategoryID    *int
	ID            string
	Description   string
	MerchantName  string // empty when the source had no merchant
	CategoryName  string
	Amount        float64 // signed: negative for expenses, positive for income
}

// OccurredAt returns the date a transaction took effect, falling back to the
// creation date when the source did not report an execution date.
func (t *Transaction) OccurredAt() time.Time {
	if t.ExecutionDate != nil {
		return *t.ExecutionDate
	}
	return t.CreatedAt
}

// HasCategory reports whether the transaction carries a category.
func (t *Transaction) HasCategory() bool {
	return t.CategoryID != nil
}
