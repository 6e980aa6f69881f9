package models

import (
	"time"
)

// AddressStats is the confirmed on-chain activity of one address
type AddressStats struct {
	Address    string    `json:"address"`
	FundedSats int64     `json:"funded_sats"`
	SpentSats  int64     `json:"spent_sats"`
	TxCount    int64     `json:"tx_count"`
	LastTxTime time.Time `json:"last_tx_time"` // zero when no confirmed tx
}

// BalanceSats returns the confirmed balance
func (a *AddressStats) BalanceSats() int64 {
	return a.FundedSats - a.SpentSats
}

// BalanceResponse is the body of GET /balance/:address
type BalanceResponse struct {
	Address    string  `json:"address"`
	BalanceBTC float64 `json:"balance_btc"`
	BalanceUSD float64 `json:"balance_usd"`
	TxCount    int64   `json:"tx_count"`
	LastTx     string  `json:"last_tx"`
}
