package models

// Price is a spot quote for BTC in one fiat currency
type Price struct {
	Fiat             string  `json:"fiat"`
	Price            float64 `json:"price"`
	Change24hPercent float64 `json:"change_24h_percent"`
	Source           string  `json:"source"`
}

// PriceResponse is the body of GET /price and /price/:fiat
type PriceResponse struct {
	Fiat             string  `json:"fiat"`
	Price            float64 `json:"price"`
	Change24hPercent float64 `json:"change_24h_percent"`
	Timestamp        string  `json:"timestamp"`
	Source           string  `json:"source"`
}

// HistoricalPrice is the USD market snapshot for one day
type HistoricalPrice struct {
	Date         string  `json:"date"` // YYYY-MM-DD
	PriceUSD     float64 `json:"price_usd"`
	VolumeUSD    float64 `json:"volume_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}

// HistoricalPriceResponse is the body of GET /historical/price
type HistoricalPriceResponse struct {
	Date         string  `json:"date"`
	PriceUSD     float64 `json:"price_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
}
