package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/newthinker/sigma/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Shared wraps a provider so that concurrent fetches of the same asset and
// horizon share one upstream request. Every fetch outcome is logged and
// reported to the recorder.
type Shared struct {
	provider PriceProvider
	recorder Recorder
	logger   *zap.Logger
	group    singleflight.Group
}

// NewShared wraps p. recorder and logger may be nil.
func NewShared(p PriceProvider, recorder Recorder, logger *zap.Logger) *Shared {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shared{provider: p, recorder: recorder, logger: logger}
}

// Name returns the wrapped provider's name.
func (s *Shared) Name() string {
	return s.provider.Name()
}

// FetchPrices fetches through the wrapped provider, coalescing duplicate
// in-flight requests. The shared upstream fetch is detached from every
// caller's cancellation and is bounded by the provider's own timeout; a
// caller whose ctx ends stops waiting without failing the others.
func (s *Shared) FetchPrices(ctx context.Context, asset string, days int) (core.Series, error) {
	key := fmt.Sprintf("%s:%d", asset, days)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.provider.FetchPrices(context.WithoutCancel(ctx), asset, days)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}

	v, err, shared := res.Val, res.Err, res.Shared
	s.record(err)
	if err != nil {
		s.logger.Warn("price fetch failed",
			zap.String("provider", s.provider.Name()),
			zap.String("asset", asset),
			zap.Error(err),
		)
		return core.Series{}, err
	}

	series := v.(core.Series)
	s.logger.Debug("prices fetched",
		zap.String("provider", s.provider.Name()),
		zap.String("asset", asset),
		zap.Int("observations", series.Len()),
		zap.Bool("shared", shared),
	)
	return series, nil
}

func (s *Shared) record(err error) {
	if s.recorder == nil {
		return
	}
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, core.ErrCollectorTimeout):
		status = "timeout"
	case errors.Is(err, core.ErrNoData):
		status = "no_data"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "canceled"
	default:
		status = "failed"
	}
	s.recorder.RecordPriceFetch(s.provider.Name(), status)
}
