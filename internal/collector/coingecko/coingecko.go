package coingecko

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
	baseURL        = "https://api.coingecko.com/api/v3"
	proBaseURL     = "https://pro-api.coingecko.com/api/v3"
	defaultTimeout = 10 * time.Second
	vsCurrency     = "usd"
)

// Ticker to CoinGecko ID mapping
var symbolToIDMap = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"BNB":  "binancecoin",
	"SOL":  "solana",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"ADA":  "cardano",
	"AVAX": "avalanche-2",
	"DOT":  "polkadot",
	"LINK": "chainlink",
	"UNI":  "uniswap",
	"ATOM": "cosmos",
	"LTC":  "litecoin",
	"XLM":  "stellar",
	"NEAR": "near",
	"AAVE": "aave",
	"ARB":  "arbitrum",
	"OP":   "optimism",
}

var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "USD"}

// CoinGecko implements collector.PriceProvider over the market chart API
type CoinGecko struct {
	client  *http.Client
	baseURL string
	apiKey  string
	pro     bool
	now     func() time.Time
}

// New creates a CoinGecko provider from cfg. An empty base URL selects the
// public or pro endpoint according to cfg.Pro.
func New(cfg collector.Config) *CoinGecko {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := cfg.BaseURL
	if base == "" {
		base = baseURL
		if cfg.Pro {
			base = proBaseURL
		}
	}
	return &CoinGecko{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		pro:     cfg.Pro,
		now:     time.Now,
	}
}

func (c *CoinGecko) Name() string {
	return "coingecko"
}

// CoinID resolves a ticker ("BTC", "btc-usdt", "BTCUSDT") or a CoinGecko
// ID ("bitcoin") to a CoinGecko ID.
func CoinID(asset string) string {
	s := strings.ToUpper(strings.TrimSpace(asset))
	s = strings.NewReplacer("-", "", "/", "", "_", "").Replace(s)
	if id, ok := symbolToIDMap[s]; ok {
		return id
	}
	for _, q := range quoteSuffixes {
		if base := strings.TrimSuffix(s, q); base != s && base != "" {
			if id, ok := symbolToIDMap[base]; ok {
				return id
			}
		}
	}
	return strings.ToLower(strings.TrimSpace(asset))
}

type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// FetchPrices fetches daily USD prices covering the last days days. The
// series is named after asset as passed in.
func (c *CoinGecko) FetchPrices(ctx context.Context, asset string, days int) (core.Series, error) {
	if days < 1 {
		return core.Series{}, core.Errorf(core.ErrInvalidInput, "days must be positive, got %d", days)
	}
	coinID := CoinID(asset)
	if coinID == "" {
		return core.Series{}, core.Errorf(core.ErrInvalidInput, "empty asset")
	}

	to := c.now().UTC()
	from := to.AddDate(0, 0, -days)
	query := url.Values{}
	query.Set("vs_currency", vsCurrency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", c.baseURL, url.PathEscape(coinID), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return core.Series{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		if c.pro {
			req.Header.Set("x-cg-pro-api-key", c.apiKey)
		} else {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return core.Series{}, core.WrapError(core.ErrCollectorTimeout, err)
		}
		return core.Series{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching %s: %w", coinID, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Series{}, core.Errorf(core.ErrCollectorFailed, "%s: unexpected status: %d", coinID, resp.StatusCode)
	}

	var chart marketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return core.Series{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	obs := make([]collector.Observation, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		obs = append(obs, collector.Observation{
			Time:  time.UnixMilli(int64(p[0])),
			Price: p[1],
		})
	}
	if len(obs) == 0 {
		return core.Series{}, core.Errorf(core.ErrNoData, "no prices for %s", coinID)
	}

	return collector.Daily(asset, obs), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
