package models

// HalvingResponse is the body of GET /halving
type HalvingResponse struct {
	NextHalvingHeight int64   `json:"next_halving_height"`
	BlocksRemaining   int64   `json:"blocks_remaining"`
	EstimatedDate     string  `json:"estimated_date"`
	CurrentRewardBTC  float64 `json:"current_reward_btc"`
	NextRewardBTC     float64 `json:"next_reward_btc"`
	TotalHalvings     int64   `json:"total_halvings"`
	Timestamp         string  `json:"timestamp"`
}

// HalvingEraResponse is returned for GET /halving?next=false
type HalvingEraResponse struct {
	CurrentRewardBTC float64 `json:"current_reward_btc"`
	TotalHalvings    int64   `json:"total_halvings"`
	Timestamp        string  `json:"timestamp"`
}
