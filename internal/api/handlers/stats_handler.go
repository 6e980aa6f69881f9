package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

// StatsHandler handles network statistics requests
type StatsHandler struct {
	svc *service.Service
}

// NewStatsHandler creates a new StatsHandler
func NewStatsHandler(svc *service.Service) *StatsHandler {
	return &StatsHandler{
		svc: svc,
	}
}

// Get returns hashrate, difficulty, circulating supply and mempool size
// GET /stats
func (h *StatsHandler) Get(c *gin.Context) {
	report, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		HashrateTHs:          report.HashrateHs / 1e12,
		Difficulty:           report.Difficulty,
		CirculatingSupplyBTC: report.SupplyBTC,
		MempoolSizeMB:        report.Mempool.SizeMB(),
		Timestamp:            timestamp(h.svc.Now()),
	})
}
