package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffeebudget/recurrent/internal/cli"
	"github.com/coffeebudget/recurrent/internal/tui"
)

func suggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List and review budget suggestions",
	}

	cmd.AddCommand(suggestionsListCmd())
	cmd.AddCommand(suggestionsReviewCmd())
	cmd.AddCommand(suggestionsApproveCmd())
	cmd.AddCommand(suggestionsRejectCmd())

	return cmd
}

func suggestionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show pending suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			fmt.Println(cli.RenderSuggestions(pending))
			return nil
		},
	}
}

func suggestionsReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively approve or reject pending suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
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
				fmt.Println(cli.FormatInfo("no pending suggestions, run 'recurrent analyze' first"))
				return nil
			}

			return tui.Run(ctx, buildOrchestrator(store), pending)
		},
	}
}

func suggestionsApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve one suggestion and create its expense plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			plan, err := buildOrchestrator(store).Approve(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("approved %s: %.2f/month (plan %s)", plan.Name, plan.MonthlyAmount, plan.ID)))
			return nil
		},
	}
}

func suggestionsRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject one suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := buildOrchestrator(store).Reject(ctx, args[0]); err != nil {
				return err
			}

			fmt.Println(cli.FormatWarning("rejected " + args[0]))
			return nil
		},
	}
}
