package cli

import (
	"fmt"
	"strings"

	"github.com/coffeebudget/recurrent/internal/model"
)

// RenderSuggestions renders a suggestion list as a styled table.
func RenderSuggestions(suggestions []model.Suggestion) string {
	if len(suggestions) == 0 {
		return SubtleStyle.Render("No suggestions.")
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(ChartIcon + " Budget suggestions"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-36s  %-24s  %-16s  %10s  %6s  %s",
		"ID", "NAME", "TYPE", "MONTHLY", "CONF", "SOURCE")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, s := range suggestions {
		line := fmt.Sprintf("%-36s  %-24s  %-16s  %10.2f  %5.0f%%  %s",
			s.ID, truncate(s.Name, 24), s.ExpenseType, s.MonthlyAmount, s.Confidence, s.Source)
		b.WriteString(TableCellStyle.Render(line))
		b.WriteString("\n")
		if s.HasDiscrepancyWarning {
			b.WriteString("  " + FormatWarning(s.DiscrepancyNote))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderSuggestionDetail renders one suggestion with all its fields.
func RenderSuggestionDetail(s *model.Suggestion) string {
	var b strings.Builder
	b.WriteString(BoldStyle.Render(s.Name))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Monthly amount: %.2f\n", s.MonthlyAmount))
	b.WriteString(fmt.Sprintf("  Expense type:   %s\n", s.ExpenseType))
	b.WriteString(fmt.Sprintf("  Confidence:     %.0f%%\n", s.Confidence))
	b.WriteString(fmt.Sprintf("  Source:         %s\n", s.Source))
	b.WriteString(fmt.Sprintf("  Essential:      %v\n", s.IsEssential))
	if s.CategoryName != "" {
		b.WriteString(fmt.Sprintf("  Category:       %s\n", s.CategoryName))
	}
	if len(s.Merchants) > 0 {
		b.WriteString(fmt.Sprintf("  Merchants:      %s\n", strings.Join(s.Merchants, ", ")))
	}
	if s.HasDiscrepancyWarning {
		b.WriteString("  " + FormatWarning(s.DiscrepancyNote) + "\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
