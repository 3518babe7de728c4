package model

import "time"

// FrequencyType is a coarse periodicity bucket derived from the average
// day-gap between occurrences of a recurring pattern.
type FrequencyType string

// Frequency type constants, ordered from shortest to longest interval.
const (
	FrequencyWeekly     FrequencyType = "weekly"
	FrequencyBiweekly   FrequencyType = "biweekly"
	FrequencyMonthly    FrequencyType = "monthly"
	FrequencyQuarterly  FrequencyType = "quarterly"
	FrequencySemiannual FrequencyType = "semiannual"
	FrequencyAnnual     FrequencyType = "annual"
)

// FrequencyPattern describes the timing of a recurring transaction group.
// Derived once per group and immutable afterwards.
type FrequencyPattern struct {
	NextExpectedDate time.Time
	Type             FrequencyType
	IntervalDays     int
	Occurrences      int
	Confidence       float64 // 0-100
}
