package coingecko

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/newthinker/sigma/internal/collector"
	"github.com/newthinker/sigma/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, cfg collector.Config, handler http.HandlerFunc) *CoinGecko {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	c := New(cfg)
	c.now = func() time.Time { return fixedNow }
	return c
}

func TestCoinGecko_Name(t *testing.T) {
	assert.Equal(t, "coingecko", New(collector.Config{}).Name())
}

func TestNew_BaseURL(t *testing.T) {
	assert.Equal(t, baseURL, New(collector.Config{}).baseURL)
	assert.Equal(t, proBaseURL, New(collector.Config{Pro: true}).baseURL)
	assert.Equal(t, "http://local", New(collector.Config{BaseURL: "http://local/"}).baseURL)
	assert.Equal(t, defaultTimeout, New(collector.Config{}).client.Timeout)
	assert.Equal(t, 3*time.Second, New(collector.Config{Timeout: 3 * time.Second}).client.Timeout)
}

func TestCoinID(t *testing.T) {
	tests := []struct {
		asset    string
		expected string
	}{
		{"BTC", "bitcoin"},
		{"btc", "bitcoin"},
		{"BTCUSDT", "bitcoin"},
		{"eth-usd", "ethereum"},
		{"SOL/USDC", "solana"},
		{"bitcoin", "bitcoin"},
		{"Some-Coin", "some-coin"},
	}

	for _, tc := range tests {
		t.Run(tc.asset, func(t *testing.T) {
			assert.Equal(t, tc.expected, CoinID(tc.asset))
		})
	}
}

func TestFetchPrices(t *testing.T) {
	day0 := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	c := newTestProvider(t, collector.Config{APIKey: "demo-key"}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/market_chart/range", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "1709812800", r.URL.Query().Get("from"))
		assert.Equal(t, "1710072000", r.URL.Query().Get("to"))
		assert.Equal(t, "demo-key", r.Header.Get("x-cg-demo-api-key"))
		assert.Empty(t, r.Header.Get("x-cg-pro-api-key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prices":[
			[1709856000000, 100.0],
			[1709895600000, 101.5],
			[1709942400000, 103.0],
			[1710028800000, 99.0],
			[1710072000000, 98.5]
		]}`))
	})

	s, err := c.FetchPrices(context.Background(), "BTC", 3)
	require.NoError(t, err)

	assert.Equal(t, "BTC", s.Name)
	require.NoError(t, s.Validate())
	assert.Equal(t, []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)}, s.Index)
	assert.Equal(t, []float64{101.5, 103.0, 98.5}, s.Values)
}

func TestFetchPrices_ProHeader(t *testing.T) {
	c := newTestProvider(t, collector.Config{APIKey: "pro-key", Pro: true}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pro-key", r.Header.Get("x-cg-pro-api-key"))
		assert.Empty(t, r.Header.Get("x-cg-demo-api-key"))
		_, _ = w.Write([]byte(`{"prices":[[1709856000000, 1.0]]}`))
	})

	_, err := c.FetchPrices(context.Background(), "ethereum", 1)
	require.NoError(t, err)
}

func TestFetchPrices_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr *core.Error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, core.ErrCollectorFailed},
		{"bad json", http.StatusOK, `{"prices":`, core.ErrCollectorFailed},
		{"empty", http.StatusOK, `{"prices":[]}`, core.ErrNoData},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestProvider(t, collector.Config{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.FetchPrices(context.Background(), "btc", 5)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestFetchPrices_Timeout(t *testing.T) {
	c := newTestProvider(t, collector.Config{Timeout: 20 * time.Millisecond}, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	_, err := c.FetchPrices(context.Background(), "btc", 5)
	assert.ErrorIs(t, err, core.ErrCollectorTimeout)
}

func TestFetchPrices_InvalidDays(t *testing.T) {
	_, err := New(collector.Config{}).FetchPrices(context.Background(), "btc", 0)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
