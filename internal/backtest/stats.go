package backtest

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
	"gonum.org/v1/gonum/stat"
)

// calculateMaxDrawdown finds the most negative (C - peak) / peak over a
// cumulative value series. It is 0 when the series never declines.
func calculateMaxDrawdown(cumulative []float64) float64 {
	if len(cumulative) == 0 {
		return 0
	}

	var maxDD float64
	peak := cumulative[0]

	for _, c := range cumulative {
		if c > peak {
			peak = c
		}
		if peak > 0 {
			dd := (c - peak) / peak
			if dd < maxDD {
				maxDD = dd
			}
		}
	}

	return maxDD
}

// calculateSharpeRatio computes sqrt(252) * mean / stddev with the sample
// standard deviation and a risk-free rate of 0.
func calculateSharpeRatio(returns []float64) core.Value {
	if len(returns) < 2 {
		return core.Undefined()
	}

	mean, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 || math.IsNaN(stdDev) {
		return core.Undefined()
	}

	return core.Defined(math.Sqrt(TradingDays) * mean / stdDev)
}
