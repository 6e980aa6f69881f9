package handlers

import (
	"errors"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/provider"
)

// timestamp formats t as RFC 3339 in UTC with a trailing Z
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// clampBTC rounds a BTC value to whole satoshis for display
func clampBTC(v float64) float64 {
	amt, err := btcutil.NewAmount(v)
	if err != nil {
		return 0
	}
	return amt.ToBTC()
}

// roundCents rounds a fiat value to two decimals
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// statusFor maps error kinds to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, calc.ErrInvalidInput), errors.Is(err, provider.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, calc.ErrInsufficientData):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError sends err as a JSON error body with the matching status
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
