package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/newthinker/sigma/internal/pipeline"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, r *pipeline.Report) {
	fmt.Fprintln(w, "=== SIGMA Analysis ===")
	fmt.Fprintf(w, "Run:     %s\n", r.RunID)
	fmt.Fprintf(w, "Assets:  %v\n", r.Assets)
	fmt.Fprintf(w, "Period:  %s to %s (%d days)\n",
		r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), r.Observations)
	fmt.Fprintf(w, "Cost:    %.2f%% per unit turnover\n", r.Cost*100)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIGNAL\tDEFINED\tLONG\tSHORT\tFLAT\tLAST\t")
	fmt.Fprintln(tw, "------\t-------\t----\t-----\t----\t----\t")
	for _, s := range append(r.Signals, r.Combined) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t\n", s.Name, s.Defined, s.Long, s.Short, s.Flat, s.Last)
	}
	tw.Flush()
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Combined signal backtest:")
	printBacktests(w, r.Backtests)

	if r.Optimization != nil {
		fmt.Fprintln(w)
		printOptimization(w, r.Optimization)
	}
}

func printBacktests(w io.Writer, bts []pipeline.AssetBacktest) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tTOTAL RETURN\tSHARPE\tMAX DRAWDOWN\tTURNOVER\t")
	fmt.Fprintln(tw, "-----\t------------\t------\t------------\t--------\t")
	for _, b := range bts {
		fmt.Fprintf(tw, "%s\t%.2f%%\t%s\t%.2f%%\t%.2f\t\n",
			b.Asset, b.TotalReturn*100, b.Sharpe, b.MaxDrawdown*100, b.Turnover)
	}
	tw.Flush()
}

func printOptimization(w io.Writer, o *pipeline.OptimizationReport) {
	fmt.Fprintf(w, "Max Sharpe weights (%d observations):\n", o.Observations)
	printWeights(w, o.MaxSharpe.Weights)
	perf := o.MaxSharpe.Performance
	fmt.Fprintf(w, "  return %.6f  volatility %.6f  annualized sharpe %s\n",
		perf.Return, perf.Volatility, perf.AnnualizedSharpe)

	if t := o.TargetReturn; t != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Target return weights:")
		weights := make(map[string]float64, len(t.Weights.Assets))
		for _, a := range t.Weights.Assets {
			weights[a], _ = t.Weights.Of(a)
		}
		printWeights(w, weights)
		fmt.Fprintf(w, "  return %.6f  volatility %.6f  sharpe %.4f\n", t.Return, t.Volatility, t.Sharpe)
	}

	if len(o.Backtests) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Optimized positions backtest (cost %.2f%%):\n", o.Cost*100)
		printBacktests(w, o.Backtests)
	}
}

func printWeights(w io.Writer, weights map[string]float64) {
	assets := make([]string, 0, len(weights))
	for a := range weights {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range assets {
		fmt.Fprintf(tw, "  %s\t%.4f\t\n", a, weights[a])
	}
	tw.Flush()
}
