package momentum

import (
	"fmt"

	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/indicator"
	"github.com/newthinker/sigma/internal/strategy"
)

// Momentum assumes trend continuation: the signal is the sum of the most
// recent window returns.
type Momentum struct {
	window int
}

// New creates a new momentum strategy
func New(window int) *Momentum {
	return &Momentum{window: window}
}

func (m *Momentum) Name() string {
	return "momentum"
}

func (m *Momentum) Description() string {
	return fmt.Sprintf("Momentum (return sum, %d)", m.window)
}

func (m *Momentum) Window() int {
	return m.window
}

func (m *Momentum) Init(cfg strategy.Config) error {
	if w, ok := strategy.IntParam(cfg.Params, "window"); ok {
		m.window = w
	}
	if m.window < 1 {
		return core.Errorf(core.ErrConfigInvalid, "momentum window must be >= 1, got %d", m.window)
	}
	return nil
}

// Generate sums the trailing window of returns. The return at index 0 does
// not exist, so the signal is undefined until window returns are available.
func (m *Momentum) Generate(prices core.Series) (core.SignalSeries, error) {
	if m.window < 1 {
		return core.SignalSeries{}, core.Errorf(core.ErrInvalidInput, "momentum window must be >= 1, got %d", m.window)
	}
	if err := prices.Validate(); err != nil {
		return core.SignalSeries{}, err
	}

	rets := indicator.PctChange(prices.Values)
	sums := indicator.RollingSum(rets, m.window)

	return core.SignalSeries{Name: m.Name(), Index: prices.Index, Values: sums}, nil
}
