package model

// CategoryAggregation merges one or more detected patterns that share a
// category into a single time-weighted monthly figure.
type CategoryAggregation struct {
	CategoryName           string
	Description            string
	PrimaryPatternID       string
	ExpenseType            ExpenseType
	DiscrepancyNote        string
	Merchants              []string
	PatternIDs             []string
	CategoryID             int
	TotalAmount            float64
	SpanMonths             float64 // floored at 1
	WeightedMonthlyAverage float64
	AverageConfidence      float64
	DiscrepancyPct         float64 // capped, see aggregate package
	IsEssential            bool
	HasDiscrepancyWarning  bool
}
