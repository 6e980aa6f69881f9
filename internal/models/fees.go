package models

// FeesResponse is the body of GET /fees
type FeesResponse struct {
	FastSatPerByte   float64 `json:"fast_sat_per_byte"`
	FastConfirmMin   float64 `json:"fast_confirm_min"`
	MediumSatPerByte float64 `json:"medium_sat_per_byte"`
	MediumConfirmMin float64 `json:"medium_confirm_min"`
	SlowSatPerByte   float64 `json:"slow_sat_per_byte"`
	SlowConfirmMin   float64 `json:"slow_confirm_min"`
	MempoolSizeMB    float64 `json:"mempool_size_mb"`
	Timestamp        string  `json:"timestamp"`
}

// FeeTierResponse is returned for GET /fees?priority=...
type FeeTierResponse struct {
	Priority      string  `json:"priority"`
	SatPerByte    float64 `json:"sat_per_byte"`
	ConfirmMin    float64 `json:"confirm_min"`
	MempoolSizeMB float64 `json:"mempool_size_mb"`
	Timestamp     string  `json:"timestamp"`
}
