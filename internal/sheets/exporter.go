package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/coffeebudget/recurrent/internal/common"
	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/service"
)

// Exporter writes suggestions and plans to a Google Sheets spreadsheet.
type Exporter struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewExporter creates a Google Sheets exporter.
func NewExporter(ctx context.Context, config Config, logger *slog.Logger) (*Exporter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Exporter{config: config, service: svc, logger: logger}, nil
}

// Export replaces the spreadsheet's first sheet with the given suggestions.
func (e *Exporter) Export(ctx context.Context, suggestions []model.Suggestion) error {
	spreadsheetID, err := e.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	values := buildRows(suggestions)

	retryOpts := service.RetryOptions{
		MaxAttempts:  e.config.RetryAttempts,
		InitialDelay: e.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		if _, clearErr := e.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do(); clearErr != nil {
			return clearErr
		}
		_, writeErr := e.service.Spreadsheets.Values.Update(spreadsheetID, "A1", &sheets.ValueRange{
			Values: values,
		}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return writeErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	e.logger.Info("exported suggestions to sheet",
		"spreadsheet_id", spreadsheetID,
		"rows", len(values)-1)

	return nil
}

// buildRows renders the export table, header row first.
func buildRows(suggestions []model.Suggestion) [][]any {
	values := [][]any{
		{"Name", "Category", "Expense type", "Monthly amount", "Confidence", "Essential", "Source", "Status", "Merchants", "Note"},
	}
	for _, s := range suggestions {
		merchants := ""
		for i, m := range s.Merchants {
			if i > 0 {
				merchants += ", "
			}
			merchants += m
		}
		values = append(values, []any{
			s.Name,
			s.CategoryName,
			string(s.ExpenseType),
			s.MonthlyAmount,
			s.Confidence,
			s.IsEssential,
			string(s.Source),
			string(s.Status),
			merchants,
			s.DiscrepancyNote,
		})
	}
	return values
}

// getOrCreateSpreadsheet resolves the configured spreadsheet, creating one
// by name when no id is set.
func (e *Exporter) getOrCreateSpreadsheet(ctx context.Context) (string, error) {
	if e.config.SpreadsheetID != "" {
		return e.config.SpreadsheetID, nil
	}

	created, err := e.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: e.config.SpreadsheetName},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	e.logger.Info("created spreadsheet",
		"title", e.config.SpreadsheetName,
		"spreadsheet_id", created.SpreadsheetId)

	return created.SpreadsheetId, nil
}

// createSheetsService builds the API client from whichever auth method the
// config carries.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}
		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken})
	}

	svc, err := sheets.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return svc, nil
}
