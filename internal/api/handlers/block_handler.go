package handlers

import (
	"net/http"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"

	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/service"
)

// BlockHandler handles block-related API requests
type BlockHandler struct {
	svc *service.Service
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(svc *service.Service) *BlockHandler {
	return &BlockHandler{
		svc: svc,
	}
}

// Get returns a block by height or by hash, whichever the path holds
// GET /block/:id
func (h *BlockHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var (
		report *service.BlockReport
		err    error
	)
	if height, perr := strconv.ParseInt(id, 10, 64); perr == nil {
		if height < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block height"})
			return
		}
		report, err = h.svc.BlockByHeight(c.Request.Context(), height)
	} else {
		if !validBlockHash(id) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid block height or hash"})
			return
		}
		report, err = h.svc.BlockByHash(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, blockResponse(report))
}

func validBlockHash(s string) bool {
	if len(s) != chainhash.MaxHashStringSize {
		return false
	}
	_, err := chainhash.NewHashFromStr(s)
	return err == nil
}

func blockResponse(report *service.BlockReport) models.BlockResponse {
	b := report.Block
	return models.BlockResponse{
		Height:    b.Height,
		Hash:      b.Hash,
		Timestamp: timestamp(b.Timestamp),
		Miner:     b.Miner,
		TxCount:   b.TxCount,
		RewardBTC: clampBTC(report.RewardBTC),
	}
}
