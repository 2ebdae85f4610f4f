// Package returns converts price series into period-over-period return series.
package returns

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
)

// Calculate converts prices into simple returns aligned 1:1 with the input.
// The first return is 0 by convention so downstream arithmetic stays defined.
func Calculate(prices core.Series) (core.Series, error) {
	if prices.Len() == 0 {
		return core.Series{}, core.Errorf(core.ErrInvalidInput, "series %q is empty", prices.Name)
	}
	if err := prices.Validate(); err != nil {
		return core.Series{}, err
	}
	for i, p := range prices.Values {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return core.Series{}, core.Errorf(core.ErrInvalidInput,
				"series %q: price at %d must be positive and finite, got %v", prices.Name, i, p)
		}
	}

	values := make([]float64, prices.Len())
	for i := 1; i < len(values); i++ {
		values[i] = prices.Values[i]/prices.Values[i-1] - 1
	}

	return core.NewSeries(prices.Name, prices.Index, values), nil
}

// CalculateFrame converts aligned price series into a returns frame, one column per asset.
func CalculateFrame(prices ...core.Series) (core.Frame, error) {
	cols := make([]core.Series, 0, len(prices))
	for _, p := range prices {
		r, err := Calculate(p)
		if err != nil {
			return core.Frame{}, err
		}
		cols = append(cols, r)
	}
	return core.NewFrame(cols...)
}
