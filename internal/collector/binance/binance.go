package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
)

const (
	baseURL        = "https://api.binance.com"
	defaultTimeout = 10 * time.Second
	defaultQuote   = "USDT"
	// maxKlines is the largest page the klines endpoint returns.
	maxKlines = 1000
)

// Common quote currencies in order of priority for detection
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

// CoinGecko-style IDs accepted as asset names
var idToSymbol = map[string]string{
	"bitcoin":     "BTC",
	"ethereum":    "ETH",
	"binancecoin": "BNB",
	"solana":      "SOL",
	"ripple":      "XRP",
	"dogecoin":    "DOGE",
	"cardano":     "ADA",
	"avalanche-2": "AVAX",
	"polkadot":    "DOT",
	"chainlink":   "LINK",
	"litecoin":    "LTC",
}

// Binance implements collector.PriceProvider over daily klines
type Binance struct {
	client  *http.Client
	baseURL string
	quote   string
	now     func() time.Time
}

// New creates a new Binance provider. quote is the quote currency appended
// to bare tickers, USDT when empty.
func New(cfg collector.Config, quote string) *Binance {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
	}
	if quote == "" {
		quote = defaultQuote
	}
	return &Binance{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(base, "/"),
		quote:   strings.ToUpper(quote),
		now:     time.Now,
	}
}

func (b *Binance) Name() string {
	return "binance"
}

// Symbol converts an asset name to a trading pair.
// Input formats: "BTC", "btc", "BTC-USDT", "BTC/USDT", "btcusdt", "bitcoin"
// Output: "BTCUSDT"
func Symbol(asset, defaultQuote string) string {
	if asset == "" {
		return ""
	}
	if sym, ok := idToSymbol[strings.ToLower(asset)]; ok {
		return sym + strings.ToUpper(defaultQuote)
	}

	s := strings.ToUpper(asset)
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)

	// Ensure there's a base currency left (symbol must be longer than quote)
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s
		}
	}
	return s + strings.ToUpper(defaultQuote)
}

// FetchPrices fetches daily closing prices covering the last days days.
func (b *Binance) FetchPrices(ctx context.Context, asset string, days int) (core.Series, error) {
	if days < 1 {
		return core.Series{}, core.Errorf(core.ErrInvalidInput, "days must be positive, got %d", days)
	}
	symbol := Symbol(asset, b.quote)
	if symbol == "" {
		return core.Series{}, core.Errorf(core.ErrInvalidInput, "empty asset")
	}

	end := b.now().UTC()
	start := end.AddDate(0, 0, -days)

	var obs []collector.Observation
	for start.Before(end) {
		page, err := b.klines(ctx, symbol, start, end)
		if err != nil {
			return core.Series{}, err
		}
		if len(page) == 0 {
			break
		}
		obs = append(obs, page...)
		if len(page) < maxKlines {
			break
		}
		start = page[len(page)-1].Time.Add(time.Millisecond)
	}
	if len(obs) == 0 {
		return core.Series{}, core.Errorf(core.ErrNoData, "no klines for %s", symbol)
	}

	return collector.Daily(asset, obs), nil
}

// klines fetches one page of daily klines, keyed by open time with the
// close price.
func (b *Binance) klines(ctx context.Context, symbol string, start, end time.Time) ([]collector.Observation, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", "1d")
	query.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	query.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	query.Set("limit", strconv.Itoa(maxKlines))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/v3/klines?"+query.Encode(), nil)
	if err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching %s: %w", symbol, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.Errorf(core.ErrCollectorFailed, "%s: unexpected status: %d", symbol, resp.StatusCode)
	}

	// Binance returns [[openTime, open, high, low, close, volume, ...], ...]
	var klines [][]any
	if err := json.NewDecoder(resp.Body).Decode(&klines); err != nil {
		return nil, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	obs := make([]collector.Observation, 0, len(klines))
	for _, k := range klines {
		if len(k) < 5 {
			continue
		}
		openTime, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, _ := k[4].(string)
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, core.Errorf(core.ErrCollectorFailed, "%s: bad close price %q", symbol, closeStr)
		}
		obs = append(obs, collector.Observation{
			Time:  time.UnixMilli(int64(openTime)),
			Price: closePrice,
		})
	}
	return obs, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
