package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coffeebudget/recurrent/internal/cli"
	"github.com/coffeebudget/recurrent/internal/model"
)

// Reviewer carries out suggestion lifecycle transitions on behalf of the
// review screen.
type Reviewer interface {
	Approve(ctx context.Context, id string) (*model.ExpensePlan, error)
	Reject(ctx context.Context, id string) error
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.PrimaryColor).
			MarginBottom(1)

	statusStyle = lipgloss.NewStyle().
			Foreground(cli.SubtleColor).
			MarginTop(1)

	tableStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333"))
)

// Model is the bubbletea model for reviewing pending suggestions.
type Model struct {
	ctx         context.Context
	reviewer    Reviewer
	lastError   error
	status      string
	suggestions []model.Suggestion
	table       table.Model
	keymap      KeyMap
	approved    int
	rejected    int
	quitting    bool
}

// NewModel creates a review screen over the given pending suggestions.
func NewModel(ctx context.Context, reviewer Reviewer, suggestions []model.Suggestion) Model {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Type", Width: 14},
		{Title: "Monthly", Width: 10},
		{Title: "Conf", Width: 6},
		{Title: "Source", Width: 18},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(suggestionRows(suggestions)),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#000000")).
		Background(cli.PrimaryColor)
	t.SetStyles(styles)

	return Model{
		ctx:         ctx,
		reviewer:    reviewer,
		suggestions: suggestions,
		table:       t,
		keymap:      DefaultKeyMap(),
	}
}

func suggestionRows(suggestions []model.Suggestion) []table.Row {
	rows := make([]table.Row, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, table.Row{
			s.Name,
			string(s.ExpenseType),
			fmt.Sprintf("%.2f", s.MonthlyAmount),
			fmt.Sprintf("%.0f%%", s.Confidence),
			string(s.Source),
		})
	}
	return rows
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Approve):
			return m.resolveCurrent(true), nil
		case key.Matches(msg, m.keymap.Reject):
			return m.resolveCurrent(false), nil
		}
	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 6)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// resolveCurrent applies approve or reject to the highlighted suggestion
// and drops it from the table.
func (m Model) resolveCurrent(approve bool) Model {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.suggestions) {
		return m
	}
	suggestion := m.suggestions[idx]

	if approve {
		if _, err := m.reviewer.Approve(m.ctx, suggestion.ID); err != nil {
			m.lastError = err
			m.status = cli.FormatError(fmt.Sprintf("approve %s: %v", suggestion.Name, err))
			return m
		}
		m.approved++
		m.status = cli.FormatSuccess(fmt.Sprintf("approved %s (%.2f/month)", suggestion.Name, suggestion.MonthlyAmount))
	} else {
		if err := m.reviewer.Reject(m.ctx, suggestion.ID); err != nil {
			m.lastError = err
			m.status = cli.FormatError(fmt.Sprintf("reject %s: %v", suggestion.Name, err))
			return m
		}
		m.rejected++
		m.status = cli.FormatWarning(fmt.Sprintf("rejected %s", suggestion.Name))
	}

	m.suggestions = append(m.suggestions[:idx:idx], m.suggestions[idx+1:]...)
	m.table.SetRows(suggestionRows(m.suggestions))
	if idx >= len(m.suggestions) && idx > 0 {
		m.table.SetCursor(idx - 1)
	}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if len(m.suggestions) == 0 {
		return titleStyle.Render("Review suggestions") + "\n" +
			cli.FormatSuccess(fmt.Sprintf("All done. approved=%d rejected=%d", m.approved, m.rejected)) + "\n" +
			statusStyle.Render("press q to exit")
	}

	view := titleStyle.Render("Review suggestions") + "\n" +
		tableStyle.Render(m.table.View()) + "\n" +
		statusStyle.Render("a approve · r reject · j/k move · q quit")
	if m.status != "" {
		view += "\n" + m.status
	}
	return view
}

// Approved returns how many suggestions were approved this session.
func (m Model) Approved() int { return m.approved }

// Rejected returns how many suggestions were rejected this session.
func (m Model) Rejected() int { return m.rejected }

// Run starts the interactive review loop.
func Run(ctx context.Context, reviewer Reviewer, suggestions []model.Suggestion) error {
	program := tea.NewProgram(NewModel(ctx, reviewer, suggestions), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
