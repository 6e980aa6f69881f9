package models

// StatsResponse is the body of GET /stats
type StatsResponse struct {
	HashrateTHs          float64 `json:"hashrate_th_s"`
	Difficulty           float64 `json:"difficulty"`
	CirculatingSupplyBTC float64 `json:"circulating_supply_btc"`
	MempoolSizeMB        float64 `json:"mempool_size_mb"`
	Timestamp            string  `json:"timestamp"`
}
