package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffeebudget/recurrent/internal/cli"
	"github.com/coffeebudget/recurrent/internal/model"
	"github.com/coffeebudget/recurrent/internal/ofx"
	"github.com/coffeebudget/recurrent/internal/plaid"
	"github.com/coffeebudget/recurrent/internal/storage"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file.ofx ...]",
		Short: "Import transactions from OFX files or Plaid",
		Long: `Import bank transactions into the local database. Pass one or more
OFX/QFX statement files, or use --plaid to pull history through the
Plaid API (requires plaid.* settings in the config).`,
		RunE: runImport,
	}

	cmd.Flags().Bool("plaid", false, "fetch transactions from Plaid instead of files")
	cmd.Flags().Int("months", 12, "months of history to fetch with --plaid")
	cmd.Flags().String("category", "", "category name to assign to every imported transaction")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	usePlaid, _ := cmd.Flags().GetBool("plaid")
	months, _ := cmd.Flags().GetInt("months")
	category, _ := cmd.Flags().GetString("category")

	if !usePlaid && len(args) == 0 {
		return fmt.Errorf("pass at least one OFX file or use --plaid")
	}

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var transactions []model.Transaction
	if usePlaid {
		client, clientErr := plaid.NewClient(plaid.Config{
			ClientID:    viper.GetString("plaid.client_id"),
			Secret:      viper.GetString("plaid.secret"),
			Environment: viper.GetString("plaid.environment"),
			AccessToken: viper.GetString("plaid.access_token"),
		})
		if clientErr != nil {
			return clientErr
		}

		end := time.Now()
		transactions, err = client.GetTransactions(ctx, end.AddDate(0, -months, 0), end)
		if err != nil {
			return err
		}
	} else {
		parser := ofx.NewParser()
		for _, path := range args {
			file, openErr := os.Open(path)
			if openErr != nil {
				return fmt.Errorf("failed to open %s: %w", path, openErr)
			}
			parsed, parseErr := parser.ParseFile(ctx, file)
			_ = file.Close()
			if parseErr != nil {
				return fmt.Errorf("failed to parse %s: %w", path, parseErr)
			}
			transactions = append(transactions, parsed...)
		}
	}

	if category != "" {
		for i := range transactions {
			transactions[i].CategoryName = category
		}
	}
	if err := resolveCategories(cmd, store, transactions); err != nil {
		return err
	}

	userID := viper.GetString("user")
	if err := store.SaveTransactions(ctx, userID, transactions); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("imported %d transactions for %s", len(transactions), userID)))
	return nil
}

// resolveCategories maps category labels to ids, creating categories on
// first sight.
func resolveCategories(cmd *cobra.Command, store *storage.SQLiteStorage, transactions []model.Transaction) error {
	ctx := cmd.Context()
	ids := make(map[string]int)

	for i := range transactions {
		txn := &transactions[i]
		if txn.CategoryName == "" || txn.CategoryID != nil {
			continue
		}

		id, ok := ids[txn.CategoryName]
		if !ok {
			var err error
			id, err = store.EnsureCategory(ctx, txn.CategoryName)
			if err != nil {
				return err
			}
			ids[txn.CategoryName] = id
		}
		categoryID := id
		txn.CategoryID = &categoryID
	}

	return nil
}
