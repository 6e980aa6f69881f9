package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thanhnp/btc-apis/internal/models"
)

// CoinGeckoProvider reads BTC prices from the CoinGecko v3 API
type CoinGeckoProvider struct {
	client *resty.Client
}

// NewCoinGeckoProvider creates a price provider for the API rooted at baseURL
func NewCoinGeckoProvider(baseURL string, timeout time.Duration) (*CoinGeckoProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("price base url not set")
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &CoinGeckoProvider{client: client}, nil
}

// Price returns the spot price and 24h change for fiat using
// GET /simple/price. CoinGecko answers unknown currencies with an empty
// object, which is reported as ErrUnsupported.
func (p *CoinGeckoProvider) Price(ctx context.Context, fiat string) (*models.Price, error) {
	fiat = strings.ToLower(fiat)

	var body map[string]map[string]float64
	const path = "/simple/price"
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":                 "bitcoin",
			"vs_currencies":       fiat,
			"include_24hr_change": "true",
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get(path)
	if err := checkResponse(path, resp, err); err != nil {
		return nil, err
	}

	quote, ok := body["bitcoin"]
	if !ok {
		return nil, fmt.Errorf("%w: price response missing bitcoin", ErrUpstreamUnavailable)
	}
	price, ok := quote[fiat]
	if !ok {
		return nil, fmt.Errorf("%w: fiat currency %q", ErrUnsupported, fiat)
	}

	return &models.Price{
		Fiat:             fiat,
		Price:            price,
		Change24hPercent: quote[fiat+"_24h_change"],
		Source:           "coingecko",
	}, nil
}

type coinHistory struct {
	MarketData *struct {
		CurrentPrice map[string]float64 `json:"current_price"`
		MarketCap    map[string]float64 `json:"market_cap"`
		TotalVolume  map[string]float64 `json:"total_volume"`
	} `json:"market_data"`
}

// HistoricalPrice returns the USD snapshot for date using
// GET /coins/bitcoin/history, which takes dd-mm-yyyy. Days without market
// data, such as those before the coin was listed, are ErrNotFound.
func (p *CoinGeckoProvider) HistoricalPrice(ctx context.Context, date time.Time) (*models.HistoricalPrice, error) {
	date = date.UTC()

	var body coinHistory
	const path = "/coins/bitcoin/history"
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"date":         date.Format("02-01-2006"),
			"localization": "false",
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get(path)
	if err := checkResponse(path, resp, err); err != nil {
		return nil, err
	}

	day := date.Format("2006-01-02")
	md := body.MarketData
	if md == nil {
		return nil, fmt.Errorf("%w: no market data for %s", ErrNotFound, day)
	}
	price, ok := md.CurrentPrice["usd"]
	if !ok {
		return nil, fmt.Errorf("%w: no usd price for %s", ErrNotFound, day)
	}

	return &models.HistoricalPrice{
		Date:         day,
		PriceUSD:     price,
		VolumeUSD:    md.TotalVolume["usd"],
		MarketCapUSD: md.MarketCap["usd"],
	}, nil
}
