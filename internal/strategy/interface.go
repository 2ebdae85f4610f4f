package strategy

import (
	"github.com/newthinker/sigma/internal/core"
)

// Config holds strategy configuration
type Config struct {
	Enabled bool
	Params  map[string]any
}

// Strategy turns a price series into a signal series aligned with it.
// Implementations must only use observations at or before each index.
type Strategy interface {
	Name() string
	Description() string
	Window() int
	Init(cfg Config) error
	Generate(prices core.Series) (core.SignalSeries, error)
}

// IntParam reads an integer parameter. Config decoders hand numbers back as
// int or float64 depending on the source, so both are accepted.
func IntParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
