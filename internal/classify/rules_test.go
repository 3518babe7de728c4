package classify

import (
	"testing"

	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestMonthlyContribution(t *testing.T) {
	tests := []struct {
		name   string
		freq   model.FrequencyType
		amount float64
		want   float64
	}{
		{"weekly", model.FrequencyWeekly, 10, 43.30},
		{"biweekly", model.FrequencyBiweekly, 10, 21.70},
		{"monthly", model.FrequencyMonthly, 15.99, 15.99},
		{"quarterly", model.FrequencyQuarterly, 200, 66.67},
		{"semiannual", model.FrequencySemiannual, 120, 20},
		{"annual", model.FrequencyAnnual, 120, 10},
		{"negative amounts use absolute value", model.FrequencyMonthly, -15.99, 15.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MonthlyContribution(tt.amount, tt.freq), 0.001)
		})
	}
}

func TestClassifyByRules(t *testing.T) {
	tests := []struct {
		name          string
		req           Request
		wantType      model.ExpenseType
		wantEssential bool
	}{
		{
			name:     "streaming subscription",
			req:      Request{PatternID: "p1", Merchant: "Netflix", Category: "Entertainment", Description: "NETFLIX.COM", AverageAmount: -15.99, Frequency: model.FrequencyMonthly},
			wantType: model.ExpenseSubscription,
		},
		{
			name:          "electricity bill",
			req:           Request{PatternID: "p2", Merchant: "Enel Energia", Category: "Bills", Description: "bolletta luce", AverageAmount: -80, Frequency: model.FrequencyBiweekly},
			wantType:      model.ExpenseUtility,
			wantEssential: true,
		},
		{
			name:          "mortgage payment",
			req:           Request{PatternID: "p3", Merchant: "", Category: "Housing", Description: "mutuo prima casa", AverageAmount: -950, Frequency: model.FrequencyMonthly},
			wantType:      model.ExpenseHousing,
			wantEssential: true,
		},
		{
			name:     "salary deposit",
			req:      Request{PatternID: "p4", Merchant: "ACME Corp", Category: "Income", Description: "salary payment march", AverageAmount: 2500, Frequency: model.FrequencyMonthly},
			wantType: model.ExpenseSalary,
		},
		{
			name:          "car insurance",
			req:           Request{PatternID: "p5", Merchant: "Allianz", Category: "", Description: "premio RC auto", AverageAmount: -420, Frequency: model.FrequencySemiannual},
			wantType:      model.ExpenseInsurance,
			wantEssential: true,
		},
		{
			name:          "tax installment",
			req:           Request{PatternID: "p6", Merchant: "Agenzia Entrate", Category: "", Description: "F24 IRPEF", AverageAmount: -300, Frequency: model.FrequencyQuarterly},
			wantType:      model.ExpenseTax,
			wantEssential: true,
		},
		{
			name:     "unmatched pattern defaults",
			req:      Request{PatternID: "p7", Merchant: "Mystery Shop", Category: "Misc", Description: "pos purchase", AverageAmount: -25, Frequency: model.FrequencyMonthly},
			wantType: model.ExpenseOtherFixed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyByRules(tt.req)

			assert.Equal(t, tt.req.PatternID, got.PatternID)
			assert.Equal(t, tt.wantType, got.ExpenseType)
			assert.Equal(t, tt.wantEssential, got.IsEssential)
			assert.Equal(t, model.ClassifiedByRule, got.Source)
			assert.NotEmpty(t, got.SuggestedName)
			assert.NotEmpty(t, got.Reasoning)
			assert.GreaterOrEqual(t, got.Confidence, 50.0)
			assert.GreaterOrEqual(t, got.MonthlyContribution, 0.0)
		})
	}

	t.Run("default confidence is 50", func(t *testing.T) {
		got := ClassifyByRules(Request{PatternID: "p", Merchant: "Mystery", Frequency: model.FrequencyMonthly, AverageAmount: -10})
		assert.InDelta(t, 50.0, got.Confidence, 0.001)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		req := Request{PatternID: "p1", Merchant: "Netflix", Category: "Entertainment", Description: "NETFLIX.COM", AverageAmount: -15.99, Frequency: model.FrequencyMonthly}
		assert.Equal(t, ClassifyByRules(req), ClassifyByRules(req))
	})

	t.Run("salary wins over merchant keywords", func(t *testing.T) {
		// A payroll line mentioning the employer must classify as salary
		// even if the employer name matches another rule.
		req := Request{PatternID: "p", Merchant: "Generali", Description: "stipendio marzo", AverageAmount: 2400, Frequency: model.FrequencyMonthly}
		assert.Equal(t, model.ExpenseSalary, ClassifyByRules(req).ExpenseType)
	})

	t.Run("quarterly contribution from the end to end scenario", func(t *testing.T) {
		req := Request{PatternID: "p", Merchant: "Mystery", AverageAmount: -200, Frequency: model.FrequencyQuarterly}
		assert.InDelta(t, 66.67, ClassifyByRules(req).MonthlyContribution, 0.001)
	})
}

func TestSuggestedName(t *testing.T) {
	assert.Equal(t, "Netflix", suggestedName(Request{Merchant: "Netflix", Category: "Entertainment"}))
	assert.Equal(t, "Entertainment", suggestedName(Request{Category: "Entertainment"}))
	assert.Equal(t, "Recurring monthly expense", suggestedName(Request{Frequency: model.FrequencyMonthly}))
}
