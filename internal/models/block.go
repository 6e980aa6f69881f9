package models

import (
	"time"
)

// Block is the subset of block header data the API exposes
type Block struct {
	Hash      string    `json:"hash"`
	Height    int64     `json:"height"`
	Timestamp time.Time `json:"timestamp"`
	TxCount   int       `json:"tx_count"`
	Miner     string    `json:"miner"`

	Difficulty float64 `json:"difficulty"`
}

// BlockResponse is the body of GET /block/:id
type BlockResponse struct {
	Height    int64   `json:"height"`
	Hash      string  `json:"hash"`
	Timestamp string  `json:"timestamp"`
	Miner     string  `json:"miner"`
	TxCount   int     `json:"tx_count"`
	RewardBTC float64 `json:"reward_btc"`
}
