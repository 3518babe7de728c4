package main

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/coffeebudget/recurrent/internal/cli"
	"github.com/coffeebudget/recurrent/internal/suggest"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect recurring patterns and create budget suggestions",
		Long: `Scan the transaction history for recurring payment patterns, classify
them, and store pending budget suggestions for review.`,
		RunE: runAnalyze,
	}

	cmd.Flags().Int("months", 12, "how many months of history to analyze")
	cmd.Flags().Int("min-occurrences", 3, "minimum occurrences for a pattern")
	cmd.Flags().Float64("min-confidence", 50, "minimum pattern confidence (0-100)")
	cmd.Flags().Float64("similarity-threshold", 70, "merchant similarity required to group transactions (0-100)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	months, _ := cmd.Flags().GetInt("months")
	minOccurrences, _ := cmd.Flags().GetInt("min-occurrences")
	minConfidence, _ := cmd.Flags().GetFloat64("min-confidence")
	similarityThreshold, _ := cmd.Flags().GetFloat64("similarity-threshold")

	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orchestrator := buildOrchestrator(store)
	criteria := analysisCriteria(viper.GetString("user"), months, minOccurrences, minConfidence, similarityThreshold)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("Analyzing transactions..."),
	)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	report, runErr := orchestrator.Run(ctx, criteria)
	close(done)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if runErr != nil {
		return runErr
	}

	printReport(report)
	return nil
}

func printReport(report *suggest.Report) {
	fmt.Println(cli.RenderSuggestions(report.Suggestions))
	fmt.Println(cli.FormatInfo(fmt.Sprintf(
		"patterns=%d suggestions=%d duplicates_skipped=%d tokens=%d cost=$%.4f took=%s",
		report.PatternCount,
		len(report.Suggestions),
		report.SkippedAsDupes,
		report.TokensUsed,
		report.EstimatedCost,
		report.Duration.Round(time.Millisecond),
	)))
}
