package mean_reversion

import (
	"fmt"

	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
	"github.com/newthinker/sigma/internal/strategy"
)

// MinWindow is the smallest window with a sample standard deviation.
const MinWindow = 2

// MeanReversion bets against deviation from the rolling mean: the signal is
// the negated rolling z-score of the price.
type MeanReversion struct {
	window int
}

// New creates a new mean reversion strategy
func New(window int) *MeanReversion {
	return &MeanReversion{window: window}
}

func (m *MeanReversion) Name() string {
	return "mean_reversion"
}

func (m *MeanReversion) Description() string {
	return fmt.Sprintf("Mean Reversion (z-score, %d)", m.window)
}

func (m *MeanReversion) Window() int {
	return m.window
}

func (m *MeanReversion) Init(cfg strategy.Config) error {
	if w, ok := strategy.IntParam(cfg.Params, "window"); ok {
		m.window = w
	}
	if m.window < MinWindow {
		return core.Errorf(core.ErrConfigInvalid, "mean_reversion window must be >= %d, got %d", MinWindow, m.window)
	}
	return nil
}

// Generate returns -(p - mean)/std over the trailing window. The first
// window-1 elements and constant windows are undefined.
func (m *MeanReversion) Generate(prices core.Series) (core.SignalSeries, error) {
	if m.window < MinWindow {
		return core.SignalSeries{}, core.Errorf(core.ErrInvalidInput, "mean_reversion window must be >= %d, got %d", MinWindow, m.window)
	}
	if err := prices.Validate(); err != nil {
		return core.SignalSeries{}, err
	}

	z := indicator.RollingZScore(prices.Values, m.window)
	for i, v := range z {
		if v.Valid {
			z[i] = core.Defined(-v.V)
		}
	}

	return core.SignalSeries{Name: m.Name(), Index: prices.Index, Values: z}, nil
}
