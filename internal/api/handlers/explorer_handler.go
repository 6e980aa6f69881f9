package handlers

import (
	"net/http"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

// ExplorerHandler handles address and transaction lookups
type ExplorerHandler struct {
	svc *service.Service
}

// NewExplorerHandler creates a new ExplorerHandler
func NewExplorerHandler(svc *service.Service) *ExplorerHandler {
	return &ExplorerHandler{
		svc: svc,
	}
}

// GetBalance returns the confirmed balance of a mainnet address
// GET /balance/:address
func (h *ExplorerHandler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	if !validAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Bitcoin address"})
		return
	}

	report, err := h.svc.Address(c.Request.Context(), address)
	if err != nil {
		writeError(c, err)
		return
	}

	stats := report.Stats
	balance := btcutil.Amount(stats.BalanceSats()).ToBTC()
	lastTx := "N/A"
	if !stats.LastTxTime.IsZero() {
		lastTx = timestamp(stats.LastTxTime)
	}

	c.JSON(http.StatusOK, models.BalanceResponse{
		Address:    address,
		BalanceBTC: balance,
		BalanceUSD: roundCents(balance * report.PriceUSD),
		TxCount:    stats.TxCount,
		LastTx:     lastTx,
	})
}

// GetTx returns a transaction with its confirmation count
// GET /tx/:txid
func (h *ExplorerHandler) GetTx(c *gin.Context) {
	txid := c.Param("txid")
	// txids share the block hash encoding
	if !validBlockHash(txid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction id"})
		return
	}

	report, err := h.svc.Transaction(c.Request.Context(), txid)
	if err != nil {
		writeError(c, err)
		return
	}

	tx := report.Tx
	ts := "N/A"
	if tx.Confirmed {
		ts = timestamp(tx.BlockTime)
	}

	c.JSON(http.StatusOK, models.TxResponse{
		TxID:          tx.TxID,
		BlockHeight:   tx.BlockHeight,
		Confirmations: report.Confirmations,
		FeeBTC:        btcutil.Amount(tx.FeeSats).ToBTC(),
		ValueBTC:      btcutil.Amount(tx.OutputSats).ToBTC(),
		Timestamp:     ts,
	})
}

func validAddress(s string) bool {
	addr, err := btcutil.DecodeAddress(s, &chaincfg.MainNetParams)
	if err != nil {
		return false
	}
	return addr.IsForNet(&chaincfg.MainNetParams)
}
