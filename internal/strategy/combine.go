package strategy

import (
	"math"

	"github.com/newthinker/sigma/internal/core"
)

// Combine merges aligned signals into one directional signal: the sign of
// their mean at each index. If any input is undefined at an index the
// combined signal is undefined there too ("no data" is not "no conviction").
func Combine(signals ...core.SignalSeries) (core.SignalSeries, error) {
	if len(signals) == 0 {
		return core.SignalSeries{}, core.Errorf(core.ErrInvalidInput, "no signals to combine")
	}

	index := signals[0].Index
	for _, s := range signals {
		if len(s.Index) != len(s.Values) {
			return core.SignalSeries{}, core.Errorf(core.ErrInvalidInput,
				"signal %q: %d timestamps for %d values", s.Name, len(s.Index), len(s.Values))
		}
		if !core.SameIndex(index, s.Index) {
			return core.SignalSeries{}, core.Errorf(core.ErrAlignment,
				"signal %q does not share the index of %q", s.Name, signals[0].Name)
		}
	}

	values := make([]core.Value, len(index))
	for i := range index {
		var sum float64
		defined := true
		for _, s := range signals {
			v := s.Values[i]
			if !v.Valid || math.IsNaN(v.V) {
				defined = false
				break
			}
			sum += v.V
		}
		if defined {
			values[i] = core.Defined(sign(sum / float64(len(signals))))
		}
	}

	return core.SignalSeries{Name: "combined", Index: index, Values: values}, nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
