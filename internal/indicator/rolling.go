package indicator

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
	"gonum.org/v1/gonum/stat"
)

// Every function in this file returns a slice aligned with its input:
// element i only looks at observations at or before i, and positions
// without enough history are undefined.

// PctChange calculates period-over-period change: out[i] = x[i]/x[i-1] - 1.
// out[0] is undefined, as is any step whose previous value is zero.
func PctChange(values []float64) []core.Value {
	out := make([]core.Value, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i] = core.Defined(values[i]/values[i-1] - 1)
	}
	return out
}

// RollingMean calculates the simple moving average over the trailing window.
func RollingMean(values []float64, window int) []core.Value {
	out := make([]core.Value, len(values))
	if window < 1 || len(values) < window {
		return out
	}

	var sum float64
	for i := 0; i < window; i++ {
		sum += values[i]
	}
	out[window-1] = core.Defined(sum / float64(window))

	// Rolling calculation
	for i := window; i < len(values); i++ {
		sum = sum - values[i-window] + values[i]
		out[i] = core.Defined(sum / float64(window))
	}
	return out
}

// RollingStd calculates the sample (n-1) standard deviation over the trailing window.
func RollingStd(values []float64, window int) []core.Value {
	out := make([]core.Value, len(values))
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		out[i] = core.Defined(stat.StdDev(values[i-window+1:i+1], nil))
	}
	return out
}

// RollingZScore calculates (x - mean) / std from RollingMean and RollingStd.
// A window whose observations are all equal has no z-score.
func RollingZScore(values []float64, window int) []core.Value {
	out := make([]core.Value, len(values))
	mean := RollingMean(values, window)
	std := RollingStd(values, window)
	for i := range values {
		if !mean[i].Valid || !std[i].Valid || isConstant(values[i-window+1:i+1]) {
			continue
		}
		s := std[i].V
		if s == 0 || math.IsNaN(s) {
			continue
		}
		out[i] = core.Defined((values[i] - mean[i].V) / s)
	}
	return out
}

// RollingSum sums the trailing window. The sum is undefined if any element
// in the window is undefined.
func RollingSum(values []core.Value, window int) []core.Value {
	out := make([]core.Value, len(values))
	if window < 1 {
		return out
	}

	var sum float64
	missing := 0
	for i, v := range values {
		if v.Valid {
			sum += v.V
		} else {
			missing++
		}
		if i >= window {
			old := values[i-window]
			if old.Valid {
				sum -= old.V
			} else {
				missing--
			}
		}
		if i >= window-1 && missing == 0 {
			out[i] = core.Defined(sum)
		}
	}
	return out
}

func isConstant(w []float64) bool {
	for _, v := range w[1:] {
		if v != w[0] {
			return false
		}
	}
	return true
}
