package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile    string
	debug      bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "sigma",
	Short: "SIGMA - Signal, Backtest & Portfolio Optimization",
	Long: `SIGMA fetches daily crypto prices, derives mean-reversion and momentum
signals, backtests the combined signal and optimizes long-only portfolio weights.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
