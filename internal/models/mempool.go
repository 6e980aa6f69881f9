package models

// Mempool summarizes the upstream view of unconfirmed transactions
type Mempool struct {
	TxCount    int64 `json:"tx_count"`
	VSizeBytes int64 `json:"vsize"`
}

// SizeMB returns the mempool virtual size in megabytes
func (m *Mempool) SizeMB() float64 {
	return float64(m.VSizeBytes) / 1e6
}

// MempoolResponse is the body of GET /mempool
type MempoolResponse struct {
	SizeTx      int64   `json:"size_tx"`
	SizeMB      float64 `json:"size_mb"`
	FeePerKBSat float64 `json:"fee_per_kb_sat"`
	Timestamp   string  `json:"timestamp"`
}
