package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffeebudget/recurrent/internal/cli"
	"github.com/coffeebudget/recurrent/internal/sheets"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export pending suggestions to Google Sheets",
		RunE:  runExport,
	}

	cmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to write to (created by name when empty)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	spreadsheetID, _ := cmd.Flags().GetString("spreadsheet-id")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	pending, err := store.GetPendingSuggestions(ctx, viper.GetString("user"))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println(cli.FormatInfo("nothing to export"))
		return nil
	}

	config := sheets.DefaultConfig()
	config.ClientID = viper.GetString("sheets.client_id")
	config.ClientSecret = viper.GetString("sheets.client_secret")
	config.RefreshToken = viper.GetString("sheets.refresh_token")
	config.ServiceAccountPath = viper.GetString("sheets.service_account_path")
	if spreadsheetID != "" {
		config.SpreadsheetID = spreadsheetID
	} else {
		config.SpreadsheetID = viper.GetString("sheets.spreadsheet_id")
	}
	if name := viper.GetString("sheets.spreadsheet_name"); name != "" {
		config.SpreadsheetName = name
	}

	exporter, err := sheets.NewExporter(ctx, config, nil)
	if err != nil {
		return err
	}
	if err := exporter.Export(ctx, pending); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("exported %d suggestions", len(pending))))
	return nil
}
