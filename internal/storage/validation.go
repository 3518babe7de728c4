package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coffeebudget/recurrent/internal/model"
)

// Validation errors.
var (
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSuggestion  = errors.New("invalid suggestion")
)

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransaction checks the fields persistence depends on.
func validateTransaction(txn *model.Transaction) error {
	if txn.Description == "" && txn.MerchantName == "" {
		return fmt.Errorf("%w: description and merchant both empty", ErrInvalidTransaction)
	}
	return nil
}

// validateSuggestion checks the fields persistence depends on.
func validateSuggestion(s *model.Suggestion) error {
	if s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSuggestion)
	}
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSuggestion)
	}
	if s.Source != model.SourcePattern && s.Source != model.SourceCategoryAverage {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidSuggestion, s.Source)
	}
	return nil
}
