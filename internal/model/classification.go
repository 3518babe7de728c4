package model

// ExpenseType classifies the economic nature of a recurring pattern.
type ExpenseType string

// Expense type constants.
const (
	ExpenseSubscription ExpenseType = "subscription"
	ExpenseUtility      ExpenseType = "utility"
	ExpenseInsurance    ExpenseType = "insurance"
	ExpenseHousing      ExpenseType = "housing"
	ExpenseLoan         ExpenseType = "loan"
	ExpenseSalary       ExpenseType = "salary"
	ExpenseTax          ExpenseType = "tax"
	ExpenseOtherFixed   ExpenseType = "other_fixed"
)

// ValidExpenseType reports whether s names a known expense type.
func ValidExpenseType(s string) bool {
	switch ExpenseType(s) {
	case ExpenseSubscription, ExpenseUtility, ExpenseInsurance, ExpenseHousing,
		ExpenseLoan, ExpenseSalary, ExpenseTax, ExpenseOtherFixed:
		return true
	}
	return false
}

// ClassificationSource indicates which path produced a classification.
type ClassificationSource string

// Classification source constants.
const (
	ClassifiedByAI      ClassificationSource = "ai"
	ClassifiedByRule    ClassificationSource = "rule"
	ClassifiedFromCache ClassificationSource = "cache"
)

// ClassificationResult maps a detected pattern to its economic type. Both
// the AI path and the rule-based fallback populate every field.
type ClassificationResult struct {
	PatternID           string
	ExpenseType         ExpenseType
	SuggestedName       string
	Reasoning           string
	Source              ClassificationSource
	MonthlyContribution float64
	Confidence          float64 // 0-100
	IsEssential         bool
}
