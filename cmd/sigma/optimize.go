package main

import (
	"context"
	"os"

	"github.com/newthinker/sigma/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var optimizeTarget float64

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize portfolio weights",
	Long: `Compute long-only, fully invested weights for the configured assets.
Without --target only the Sharpe-maximizing weights are computed.`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().Float64Var(&optimizeTarget, "target", 0, "target per-period return")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	var target *float64
	if cmd.Flags().Changed("target") {
		target = &optimizeTarget
	}

	return withApp(func(ctx context.Context, a *app.App, log *zap.Logger) error {
		report, err := a.Pipeline().Optimize(ctx, a.Request(target, false))
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(os.Stdout, report)
		}
		printOptimization(os.Stdout, report)
		return nil
	})
}
