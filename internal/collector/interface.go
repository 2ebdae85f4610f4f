package collector

import (
	"context"
	"time"

	"github.com/newthinker/sigma/internal/core"
)

// Config holds price provider configuration
type Config struct {
	APIKey  string
	BaseURL string
	Pro     bool
	Timeout time.Duration
}

// PriceProvider fetches daily closing prices for one asset.
//
// The returned series is named after the asset and carries strictly
// increasing, de-duplicated UTC day timestamps.
type PriceProvider interface {
	Name() string
	FetchPrices(ctx context.Context, asset string, days int) (core.Series, error)
}

// Recorder receives the outcome of every price fetch.
type Recorder interface {
	RecordPriceFetch(provider, status string)
}
