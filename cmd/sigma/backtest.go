package main

import (
	"context"
	"fmt"
	"os"

	"github.com/newthinker/sigma/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest the combined signal",
	Long:  "Generate and combine signals for the configured assets and show backtest statistics",
	RunE:  runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		report, err := a.Pipeline().Analyze(ctx, a.Request(nil, true))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, report.Backtests)
		}

		fmt.Println("=== SIGMA Backtest ===")
		fmt.Printf("Assets:  %v\n", report.Assets)
		fmt.Printf("Period:  %s to %s\n", report.Start.Format("2006-01-02"), report.End.Format("2006-01-02"))
		fmt.Println()
		printBacktests(os.Stdout, report.Backtests)
		return nil
	})
}
