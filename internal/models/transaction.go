package models

import (
	"time"
)

// Transaction is the subset of transaction data the API exposes.
// BlockHeight and BlockTime are only set once Confirmed.
type Transaction struct {
	TxID        string    `json:"txid"`
	Confirmed   bool      `json:"confirmed"`
	BlockHeight int64     `json:"block_height"`
	BlockTime   time.Time `json:"block_time"`
	FeeSats     int64     `json:"fee_sats"`
	OutputSats  int64     `json:"output_sats"`
}

// TxResponse is the body of GET /tx/:txid
type TxResponse struct {
	TxID          string  `json:"txid"`
	BlockHeight   int64   `json:"block_height"`
	Confirmations int64   `json:"confirmations"`
	FeeBTC        float64 `json:"fee_btc"`
	ValueBTC      float64 `json:"value_btc"`
	Timestamp     string  `json:"timestamp"`
}
