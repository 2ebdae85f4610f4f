package backtest

import (
	"math"
	"testing"
)

func TestCalculateMaxDrawdown(t *testing.T) {
	// Simulate: +10%, +5%, -20%, +10%
	// Peak at 1.155, trough at 0.924, DD = -20%
	cumulative := []float64{1, 1.10, 1.155, 0.924, 1.0164}
	dd := calculateMaxDrawdown(cumulative)

	if math.Abs(dd+0.20) > 1e-9 {
		t.Errorf("MaxDrawdown = %f, expected -0.20", dd)
	}
}

func TestCalculateMaxDrawdown_NonDecreasing(t *testing.T) {
	dd := calculateMaxDrawdown([]float64{1, 1, 1.01, 1.02, 1.02})
	if dd != 0 {
		t.Errorf("MaxDrawdown = %f, expected 0 for a non-decreasing series", dd)
	}
}

func TestCalculateMaxDrawdown_Empty(t *testing.T) {
	if dd := calculateMaxDrawdown(nil); dd != 0 {
		t.Errorf("MaxDrawdown = %f, expected 0", dd)
	}
}

func TestCalculateSharpeRatio(t *testing.T) {
	returns := []float64{0.01, -0.005, 0.02, 0.0}

	got := calculateSharpeRatio(returns)

	mean := 0.00625
	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	want := math.Sqrt(252) * mean / math.Sqrt(ss/3)

	if !got.Valid || math.Abs(got.V-want) > 1e-9 {
		t.Errorf("Sharpe = %v, want %f", got, want)
	}
}

func TestCalculateSharpeRatio_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		returns []float64
	}{
		{"empty", nil},
		{"single period", []float64{0.01}},
		{"constant", []float64{0.01, 0.01, 0.01}},
		{"flat", []float64{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateSharpeRatio(tt.returns); got.Valid {
				t.Errorf("Sharpe = %v, want undefined", got)
			}
		})
	}
}
