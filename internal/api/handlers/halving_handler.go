package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

// HalvingHandler handles halving API requests
type HalvingHandler struct {
	svc *service.Service
}

// NewHalvingHandler creates a new HalvingHandler
func NewHalvingHandler(svc *service.Service) *HalvingHandler {
	return &HalvingHandler{
		svc: svc,
	}
}

// Get returns the next halving estimate for the current tip.
// With next=false only the current era is described.
// GET /halving
func (h *HalvingHandler) Get(c *gin.Context) {
	next := true
	if raw, ok := c.GetQuery("next"); ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid next parameter, must be a boolean"})
			return
		}
		next = v
	}

	info, err := h.svc.Halving(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	now := timestamp(h.svc.Now())
	if !next {
		c.JSON(http.StatusOK, models.HalvingEraResponse{
			CurrentRewardBTC: clampBTC(info.CurrentRewardBTC),
			TotalHalvings:    info.TotalHalvings,
			Timestamp:        now,
		})
		return
	}

	c.JSON(http.StatusOK, models.HalvingResponse{
		NextHalvingHeight: info.NextHalvingHeight,
		BlocksRemaining:   info.BlocksRemaining,
		EstimatedDate:     timestamp(info.EstimatedDate),
		CurrentRewardBTC:  clampBTC(info.CurrentRewardBTC),
		NextRewardBTC:     clampBTC(info.NextRewardBTC),
		TotalHalvings:     info.TotalHalvings,
		Timestamp:         now,
	})
}
