// Package position maps directional signals and optimized weights into
// position series consumed by the backtest engine.
package position

import (
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// Mapper converts a combined signal into positions on the same index.
type Mapper interface {
	Map(signal core.SignalSeries) core.Series
}

// Unit holds a fixed size in the direction of the signal. Undefined signal
// elements mean no holding.
type Unit struct {
	Size float64
}

// Map implements Mapper.
func (u Unit) Map(signal core.SignalSeries) core.Series {
	values := make([]float64, signal.Len())
	for i, v := range signal.Values {
		if v.Valid {
			values[i] = u.Size * v.V
		}
	}
	return core.NewSeries(signal.Name, signal.Index, values)
}

// FromWeights holds each asset's weight constantly over the index.
func FromWeights(columns []string, weights []float64, index []time.Time) ([]core.Series, error) {
	if len(columns) != len(weights) {
		return nil, core.Errorf(core.ErrInvalidInput, "%d weights for %d assets", len(weights), len(columns))
	}

	out := make([]core.Series, len(columns))
	for j, name := range columns {
		values := make([]float64, len(index))
		for i := range values {
			values[i] = weights[j]
		}
		out[j] = core.NewSeries(name, index, values)
	}
	return out, nil
}
