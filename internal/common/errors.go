// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound = errors.New("not found")

	// Classifier errors.
	ErrClassificationFailed = errors.New("classification failed")
	ErrNoAPIKey             = errors.New("no classifier API key configured")

	// Plaid errors.
	ErrPlaidConnection = errors.New("plaid connection failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)
