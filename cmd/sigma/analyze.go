package main

import (
	"context"
	"os"

	"github.com/newthinker/sigma/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeTarget float64

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis",
	Long:  "Fetch prices, generate and combine signals, backtest them and optimize portfolio weights",
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Float64Var(&analyzeTarget, "target", 0, "target per-period return for the target-return optimizer")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	var target *float64
	if cmd.Flags().Changed("target") {
		target = &analyzeTarget
	}

	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		report, err := a.Pipeline().Analyze(ctx, a.Request(target, false))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, report)
		}
		printReport(os.Stdout, report)
		return nil
	})
}
