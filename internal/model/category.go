package model

import "time"

// Category represents a spending or income category.
type Category struct {
	CreatedAt time.Time
	Name      string
	ID        int
}
