package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCoinGeckoServer(t *testing.T, handler http.HandlerFunc) *CoinGeckoProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewCoinGeckoProvider(srv.URL, time.Second)
	require.NoError(t, err)
	return p
}

func TestCoinGecko_Price(t *testing.T) {
	p := newCoinGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "bitcoin", r.URL.Query().Get("ids"))
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		assert.Equal(t, "true", r.URL.Query().Get("include_24hr_change"))
		w.Write([]byte(`{"bitcoin":{"eur":59123.4,"eur_24h_change":-2.5}}`))
	})

	price, err := p.Price(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "eur", price.Fiat)
	assert.Equal(t, 59123.4, price.Price)
	assert.Equal(t, -2.5, price.Change24hPercent)
	assert.Equal(t, "coingecko", price.Source)
}

func TestCoinGecko_UnknownFiat(t *testing.T) {
	p := newCoinGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bitcoin":{}}`))
	})

	_, err := p.Price(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestCoinGecko_Unavailable(t *testing.T) {
	p := newCoinGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error_code":429}}`, http.StatusTooManyRequests)
	})
	_, err := p.Price(context.Background(), "usd")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)

	p = newCoinGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	_, err = p.Price(context.Background(), "usd")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCoinGecko_HistoricalPrice(t *testing.T) {
	p := newCoinGeckoServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin/history", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("localization"))
		switch r.URL.Query().Get("date") {
		case "20-04-2024":
			w.Write([]byte(`{"id":"bitcoin","market_data":{"current_price":{"usd":64994.44},
				"market_cap":{"usd":1279666344120.5},"total_volume":{"usd":19629709474.2}}}`))
		default:
			w.Write([]byte(`{"id":"bitcoin","name":"Bitcoin"}`))
		}
	})

	h, err := p.HistoricalPrice(context.Background(), time.Date(2024, 4, 20, 13, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-04-20", h.Date)
	assert.Equal(t, 64994.44, h.PriceUSD)
	assert.Equal(t, 19629709474.2, h.VolumeUSD)
	assert.Equal(t, 1279666344120.5, h.MarketCapUSD)

	_, err = p.HistoricalPrice(context.Background(), time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrNotFound)
}
