package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	metrics "github.com/rcrowley/go-metrics"

	"github.com/thanhnp/btc-apis/internal/api/handlers"
	"github.com/thanhnp/btc-apis/internal/api/middleware"
	"github.com/thanhnp/btc-apis/internal/service"
)

// Endpoints lists the public routes, served by GET /
var Endpoints = []string{
	"/halving",
	"/fees",
	"/mempool",
	"/block/{height}",
	"/block/{hash}",
	"/price",
	"/price/{fiat}",
	"/balance/{address}",
	"/tx/{txid}",
	"/stats",
	"/historical/price?date=YYYY-MM-DD",
}

// Router wraps the Gin router with handlers
type Router struct {
	engine          *gin.Engine
	svc             *service.Service
	halvingHandler  *handlers.HalvingHandler
	feeHandler      *handlers.FeeHandler
	blockHandler    *handlers.BlockHandler
	priceHandler    *handlers.PriceHandler
	explorerHandler *handlers.ExplorerHandler
	statsHandler    *handlers.StatsHandler
}

// NewRouter creates a new Router with all handlers
func NewRouter(svc *service.Service) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:          gin.New(),
		svc:             svc,
		halvingHandler:  handlers.NewHalvingHandler(svc),
		feeHandler:      handlers.NewFeeHandler(svc),
		blockHandler:    handlers.NewBlockHandler(svc),
		priceHandler:    handlers.NewPriceHandler(svc),
		explorerHandler: handlers.NewExplorerHandler(svc),
		statsHandler:    handlers.NewStatsHandler(svc),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery(r.svc.Registry()))
	r.engine.Use(middleware.Logger(r.svc.Registry()))
	r.engine.Use(middleware.CORS())
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	r.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"endpoints": Endpoints})
	})

	// Health check
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.engine.GET("/debug/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		metrics.WriteJSONOnce(r.svc.Registry(), c.Writer)
	})

	r.engine.GET("/halving", r.halvingHandler.Get)
	r.engine.GET("/fees", r.feeHandler.GetFees)
	r.engine.GET("/mempool", r.feeHandler.GetMempool)
	r.engine.GET("/block/:id", r.blockHandler.Get)
	r.engine.GET("/price", r.priceHandler.Get)
	r.engine.GET("/price/:fiat", r.priceHandler.Get)
	r.engine.GET("/historical/price", r.priceHandler.GetHistorical)
	r.engine.GET("/balance/:address", r.explorerHandler.GetBalance)
	r.engine.GET("/tx/:txid", r.explorerHandler.GetTx)
	r.engine.GET("/stats", r.statsHandler.Get)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
