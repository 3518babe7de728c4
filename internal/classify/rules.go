package classify

import (
	"fmt"
	"math"
	"strings"

	"github.com/coffeebudget/recurrent/internal/model"
)

// rule maps a keyword predicate to a classification outcome. Rules are
// evaluated in order; the first match wins.
type rule struct {
	name        string
	keywords    []string
	expenseType model.ExpenseType
	confidence  float64
	isEssential bool
}

// ruleTable is the ordered deterministic fallback classifier. Salary sits
// first so payroll descriptions mentioning a company name never fall
// through to a merchant rule.
var ruleTable = []rule{
	{
		name:        "salary",
		keywords:    []string{"salary", "payroll", "paycheck", "wages", "stipendio", "emolumenti"},
		expenseType: model.ExpenseSalary,
		isEssential: false,
		confidence:  90,
	},
	{
		name:        "housing",
		keywords:    []string{"mortgage", "mutuo", "rent", "affitto", "lease", "condominio"},
		expenseType: model.ExpenseHousing,
		isEssential: true,
		confidence:  85,
	},
	{
		name:        "loan",
		keywords:    []string{"loan", "prestito", "financing", "finanziamento", "installment", "rata"},
		expenseType: model.ExpenseLoan,
		isEssential: true,
		confidence:  85,
	},
	{
		name:        "insurance",
		keywords:    []string{"insurance", "assicurazione", "allianz", "axa", "generali", "unipol"},
		expenseType: model.ExpenseInsurance,
		isEssential: true,
		confidence:  85,
	},
	{
		name:        "tax",
		keywords:    []string{"tax", "tasse", "irpef", "imu", "agenzia entrate", "f24"},
		expenseType: model.ExpenseTax,
		isEssential: true,
		confidence:  85,
	},
	{
		name: "utility",
		keywords: []string{
			"electric", "enel", "energia", "luce", "gas", "water", "acqua",
			"internet", "fibra", "broadband", "telecom", "vodafone", "fastweb", "utility",
		},
		expenseType: model.ExpenseUtility,
		isEssential: true,
		confidence:  85,
	},
	{
		name: "subscription",
		keywords: []string{
			"netflix", "spotify", "disney", "prime video", "hulu", "dazn",
			"subscription", "abbonamento", "membership", "patreon", "icloud", "youtube premium",
		},
		expenseType: model.ExpenseSubscription,
		isEssential: false,
		confidence:  90,
	},
}

// monthly contribution multipliers per frequency type.
const (
	weeklyToMonthly   = 4.33
	biweeklyToMonthly = 2.17
)

// MonthlyContribution normalizes an average occurrence amount to a monthly
// figure via fixed per-frequency multipliers, rounded to 2 decimals. Always
// derived from the absolute amount.
func MonthlyContribution(averageAmount float64, freq model.FrequencyType) float64 {
	amount := math.Abs(averageAmount)

	var monthly float64
	switch freq {
	case model.FrequencyWeekly:
		monthly = amount * weeklyToMonthly
	case model.FrequencyBiweekly:
		monthly = amount * biweeklyToMonthly
	case model.FrequencyMonthly:
		monthly = amount
	case model.FrequencyQuarterly:
		monthly = amount / 3
	case model.FrequencySemiannual:
		monthly = amount / 6
	case model.FrequencyAnnual:
		monthly = amount / 12
	default:
		monthly = amount
	}

	return math.Round(monthly*100) / 100
}

// ClassifyByRules runs the deterministic rule table for one pattern. It is
// the fallback when the external classifier is unavailable, over budget or
// failing, and the only classification path guaranteed stable across
// environments.
func ClassifyByRules(req Request) model.ClassificationResult {
	haystack := strings.ToLower(req.Merchant + " " + req.Category + " " + req.Description)

	for _, r := range ruleTable {
		for _, keyword := range r.keywords {
			if strings.Contains(haystack, keyword) {
				return model.ClassificationResult{
					PatternID:           req.PatternID,
					ExpenseType:         r.expenseType,
					IsEssential:         r.isEssential,
					SuggestedName:       suggestedName(req),
					MonthlyContribution: MonthlyContribution(req.AverageAmount, req.Frequency),
					Confidence:          r.confidence,
					Reasoning:           fmt.Sprintf("matched %s keyword %q", r.name, keyword),
					Source:              model.ClassifiedByRule,
				}
			}
		}
	}

	return model.ClassificationResult{
		PatternID:           req.PatternID,
		ExpenseType:         model.ExpenseOtherFixed,
		IsEssential:         false,
		SuggestedName:       suggestedName(req),
		MonthlyContribution: MonthlyContribution(req.AverageAmount, req.Frequency),
		Confidence:          50,
		Reasoning:           "no keyword rule matched",
		Source:              model.ClassifiedByRule,
	}
}

// suggestedName picks a human-readable name for the pattern.
func suggestedName(req Request) string {
	if req.Merchant != "" {
		return req.Merchant
	}
	if req.Category != "" {
		return req.Category
	}
	return fmt.Sprintf("Recurring %s expense", req.Frequency)
}
