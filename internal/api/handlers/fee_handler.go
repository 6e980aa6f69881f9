package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

// FeeHandler handles fee estimate and mempool API requests
type FeeHandler struct {
	svc *service.Service
}

// NewFeeHandler creates a new FeeHandler
func NewFeeHandler(svc *service.Service) *FeeHandler {
	return &FeeHandler{
		svc: svc,
	}
}

// GetFees returns the fast, medium and slow fee tiers, or a single tier
// when priority is given
// GET /fees
func (h *FeeHandler) GetFees(c *gin.Context) {
	var priority calc.Tier
	if raw, ok := c.GetQuery("priority"); ok {
		tier, err := calc.ParseTier(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority. Must be 'fast', 'medium' or 'slow'"})
			return
		}
		priority = tier
	}

	report, err := h.svc.Fees(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	est := report.Estimate
	sizeMB := report.Mempool.SizeMB()
	now := timestamp(h.svc.Now())

	if priority != "" {
		tier, _ := est.Get(priority)
		c.JSON(http.StatusOK, models.FeeTierResponse{
			Priority:      string(priority),
			SatPerByte:    tier.SatPerByte,
			ConfirmMin:    tier.ConfirmMinutes,
			MempoolSizeMB: sizeMB,
			Timestamp:     now,
		})
		return
	}

	c.JSON(http.StatusOK, models.FeesResponse{
		FastSatPerByte:   est.Fast.SatPerByte,
		FastConfirmMin:   est.Fast.ConfirmMinutes,
		MediumSatPerByte: est.Medium.SatPerByte,
		MediumConfirmMin: est.Medium.ConfirmMinutes,
		SlowSatPerByte:   est.Slow.SatPerByte,
		SlowConfirmMin:   est.Slow.ConfirmMinutes,
		MempoolSizeMB:    sizeMB,
		Timestamp:        now,
	})
}

// GetMempool returns the mempool size with the medium tier fee rate
// expressed per kilobyte. The rate falls back to
// service.DefaultMediumSatPerByte when no estimate is available.
// GET /mempool
func (h *FeeHandler) GetMempool(c *gin.Context) {
	report, err := h.svc.Mempool(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.MempoolResponse{
		SizeTx:      report.Mempool.TxCount,
		SizeMB:      report.Mempool.SizeMB(),
		FeePerKBSat: report.MediumSatPerByte * 1000,
		Timestamp:   timestamp(h.svc.Now()),
	})
}
