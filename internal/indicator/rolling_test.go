package indicator

import (
	"math"
	"testing"

	"github.com/newthinker/sigma/internal/core"
)

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{100, 110, 99})

	if got[0].Valid {
		t.Error("first change should be undefined")
	}
	if !almostEqual(got[1].V, 0.10, 1e-12) {
		t.Errorf("change[1] = %f, want 0.10", got[1].V)
	}
	if !almostEqual(got[2].V, -0.10, 1e-12) {
		t.Errorf("change[2] = %f, want -0.10", got[2].V)
	}
}

func TestPctChange_ZeroBase(t *testing.T) {
	got := PctChange([]float64{0, 1})
	if got[1].Valid {
		t.Error("change from zero should be undefined")
	}
}

func TestRollingMean_Calculate(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 14, 15}

	mean := RollingMean(prices, 3)

	// mean(3) for [10,11,12,13,14,15]:
	// [2] = (10+11+12)/3 = 11
	// [3] = (11+12+13)/3 = 12
	// [4] = (12+13+14)/3 = 13
	// [5] = (13+14+15)/3 = 14
	expected := []core.Value{
		core.Undefined(), core.Undefined(),
		core.Defined(11), core.Defined(12), core.Defined(13), core.Defined(14),
	}

	if len(mean) != len(expected) {
		t.Fatalf("expected %d values, got %d", len(expected), len(mean))
	}
	for i, v := range expected {
		if mean[i] != v {
			t.Errorf("mean[%d] = %v, want %v", i, mean[i], v)
		}
	}
}

func TestRollingMean_NotEnoughData(t *testing.T) {
	mean := RollingMean([]float64{10, 11}, 5)

	if len(mean) != 2 {
		t.Fatalf("expected aligned output, got %d values", len(mean))
	}
	for i, v := range mean {
		if v.Valid {
			t.Errorf("mean[%d] should be undefined", i)
		}
	}
}

func TestRollingStd(t *testing.T) {
	std := RollingStd([]float64{2, 4, 4, 4, 5, 5, 7, 9}, 8)

	// sample variance of the classic example is 32/7
	want := math.Sqrt(32.0 / 7.0)
	if !std[7].Valid || !almostEqual(std[7].V, want, 1e-12) {
		t.Errorf("std[7] = %v, want %f", std[7], want)
	}
	for i := 0; i < 7; i++ {
		if std[i].Valid {
			t.Errorf("std[%d] should be undefined", i)
		}
	}
}

func TestRollingStd_WindowTooSmall(t *testing.T) {
	for _, v := range RollingStd([]float64{1, 2, 3}, 1) {
		if v.Valid {
			t.Fatal("sample std needs a window of at least 2")
		}
	}
}

func TestRollingZScore(t *testing.T) {
	z := RollingZScore([]float64{1, 2, 3}, 3)

	// mean 2, sample std 1
	if !z[2].Valid || !almostEqual(z[2].V, 1, 1e-12) {
		t.Errorf("z[2] = %v, want 1", z[2])
	}
}

func TestRollingZScore_ConstantWindow(t *testing.T) {
	z := RollingZScore([]float64{0.1, 0.1, 0.1, 0.2}, 3)

	if z[2].Valid {
		t.Errorf("constant window should be undefined, got %v", z[2])
	}
	if !z[3].Valid {
		t.Error("non-constant window should be defined")
	}
}

func TestRollingZScore_MatchesMeanAndStd(t *testing.T) {
	values := []float64{10, 11, 9.5, 12, 12, 8, 13.25, 10, 11.5, 9}
	window := 4

	mean := RollingMean(values, window)
	std := RollingStd(values, window)
	z := RollingZScore(values, window)

	for i := range values {
		if i < window-1 {
			if z[i].Valid {
				t.Errorf("z[%d] should be undefined", i)
			}
			continue
		}
		want := (values[i] - mean[i].V) / std[i].V
		if !z[i].Valid || !almostEqual(z[i].V, want, 1e-12) {
			t.Errorf("z[%d] = %v, want %v", i, z[i], want)
		}
	}
}

func TestRollingSum(t *testing.T) {
	values := []core.Value{core.Undefined(), core.Defined(1), core.Defined(2), core.Defined(3)}

	sum := RollingSum(values, 2)

	if sum[0].Valid || sum[1].Valid {
		t.Error("windows touching an undefined element should be undefined")
	}
	if !sum[2].Valid || sum[2].V != 3 {
		t.Errorf("sum[2] = %v, want 3", sum[2])
	}
	if !sum[3].Valid || sum[3].V != 5 {
		t.Errorf("sum[3] = %v, want 5", sum[3])
	}
}

func TestRollingSum_GapInMiddle(t *testing.T) {
	values := []core.Value{core.Defined(1), core.Undefined(), core.Defined(2), core.Defined(3), core.Defined(4)}

	sum := RollingSum(values, 2)

	want := []bool{false, false, false, true, true}
	for i, w := range want {
		if sum[i].Valid != w {
			t.Errorf("sum[%d].Valid = %v, want %v", i, sum[i].Valid, w)
		}
	}
	if sum[4].V != 7 {
		t.Errorf("sum[4] = %v, want 7", sum[4])
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}
