package strategy

import (
	"context"
	"sort"
	"sync"

	"github.com/newthinker/sigma/internal/core"
	"go.uber.org/zap"
)

// Engine manages and runs strategies
type Engine struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	logger     *zap.Logger
}

// NewEngine creates a new strategy engine
func NewEngine(logger ...*zap.Logger) *Engine {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.NewNop()
	}
	return &Engine{
		strategies: make(map[string]Strategy),
		logger:     l,
	}
}

// Register adds a strategy to the engine
func (e *Engine) Register(s Strategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategies[s.Name()] = s
}

// Get retrieves a strategy by name
func (e *Engine) Get(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.strategies[name]
	return s, ok
}

// GetAll returns all registered strategies ordered by name
func (e *Engine) GetAll() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

// Generate runs every registered strategy over each price series.
// Signals are named "<asset>/<strategy>" and returned asset by asset.
func (e *Engine) Generate(ctx context.Context, prices ...core.Series) ([]core.SignalSeries, error) {
	strategies := e.GetAll()
	if len(strategies) == 0 {
		return nil, core.Errorf(core.ErrConfigMissing, "no strategies registered")
	}

	var all []core.SignalSeries
	for _, p := range prices {
		for _, s := range strategies {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			sig, err := s.Generate(p)
			if err != nil {
				e.logger.Warn("signal generation failed",
					zap.String("strategy", s.Name()),
					zap.String("asset", p.Name),
					zap.Error(err),
				)
				return nil, err
			}
			sig.Name = p.Name + "/" + s.Name()

			e.logger.Debug("signal generated",
				zap.String("signal", sig.Name),
				zap.Int("window", s.Window()),
				zap.Int("defined", sig.Defined()),
				zap.Int("length", sig.Len()),
			)
			all = append(all, sig)
		}
	}

	return all, nil
}
