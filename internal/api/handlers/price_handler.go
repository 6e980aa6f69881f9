package handlers

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

var fiatPattern = regexp.MustCompile(`^[a-z]{3,5}$`)

// PriceHandler handles price API requests
type PriceHandler struct {
	svc *service.Service
}

// NewPriceHandler creates a new PriceHandler
func NewPriceHandler(svc *service.Service) *PriceHandler {
	return &PriceHandler{
		svc: svc,
	}
}

// Get returns the BTC price in the requested fiat currency, USD by default
// GET /price, GET /price/:fiat
func (h *PriceHandler) Get(c *gin.Context) {
	fiat := strings.ToLower(c.Param("fiat"))
	if fiat == "" {
		fiat = "usd"
	}
	if !fiatPattern.MatchString(fiat) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid fiat currency"})
		return
	}

	p, err := h.svc.Price(c.Request.Context(), fiat)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PriceResponse{
		Fiat:             p.Fiat,
		Price:            p.Price,
		Change24hPercent: p.Change24hPercent,
		Timestamp:        timestamp(h.svc.Now()),
		Source:           p.Source,
	})
}

// GetHistorical returns the USD market snapshot for one past day
// GET /historical/price?date=YYYY-MM-DD
func (h *PriceHandler) GetHistorical(c *gin.Context) {
	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date. Use YYYY-MM-DD"})
		return
	}

	p, err := h.svc.HistoricalPrice(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.HistoricalPriceResponse{
		Date:         p.Date,
		PriceUSD:     p.PriceUSD,
		Volume24hUSD: p.VolumeUSD,
		MarketCapUSD: p.MarketCapUSD,
	})
}
