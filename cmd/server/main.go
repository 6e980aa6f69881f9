package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thanhnp/btc-apis/internal/api"
	"github.com/thanhnp/btc-apis/internal/config"
	"github.com/thanhnp/btc-apis/internal/provider"
	"github.com/thanhnp/btc-apis/internal/rpc"
	"github.com/thanhnp/btc-apis/internal/service"
	"github.com/thanhnp/btc-apis/internal/storage"
)

// How often expired cache entries are swept
const janitorInterval = time.Minute

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting BTC APIs server...")

	// Address and tx lookups need an indexed explorer, so Esplora serves
	// them whenever it is configured, even in node mode
	var esplora *provider.EsploraProvider
	if cfg.Esplora.BaseURL != "" {
		esplora, err = provider.NewEsploraProvider(cfg.Esplora.BaseURL,
			cfg.Esplora.TimeoutDuration(), cfg.Chain.BlockInterval())
		if err != nil {
			log.Fatalf("Failed to create Esplora provider: %v", err)
		}
	}

	// Chain data source
	var (
		chain      provider.ChainDataProvider
		explorer   provider.ExplorerProvider
		nodeClient *rpc.NodeRPC
	)
	if esplora != nil {
		explorer = esplora
	} else {
		log.Println("Warning: esplora.base_url not set, /balance and /tx are disabled")
	}
	switch cfg.Chain.Provider {
	case config.ProviderNode:
		client, err := rpc.ConnectNode(&cfg.Bitcoin)
		if err != nil {
			log.Fatalf("Failed to connect to Bitcoin node: %v", err)
		}
		nodeClient = client
		chain = rpc.NewNodeProvider(client, cfg.Chain.BlockInterval())
		log.Printf("Using Bitcoin node at %s", cfg.Bitcoin.Host)
	default:
		if esplora == nil {
			log.Fatalf("esplora.base_url is required with chain.provider %q", cfg.Chain.Provider)
		}
		chain = esplora
		log.Printf("Using Esplora API at %s", cfg.Esplora.BaseURL)
	}

	// Price source is optional, /price answers 502 without it
	var prices provider.PriceProvider
	if cfg.Price.BaseURL != "" {
		coingecko, err := provider.NewCoinGeckoProvider(cfg.Price.BaseURL, cfg.Price.TimeoutDuration())
		if err != nil {
			log.Fatalf("Failed to create price provider: %v", err)
		}
		prices = coingecko
	} else {
		log.Println("Warning: price.base_url not set, /price is disabled")
	}

	// Response cache
	var cache *storage.Cache
	var ttls service.TTLs
	if cfg.Cache.Enabled {
		cache, err = storage.NewCache(nil)
		if err != nil {
			log.Fatalf("Failed to open cache: %v", err)
		}
		cache.StartJanitor(janitorInterval, func(n int, err error) {
			if err != nil {
				log.Printf("[Service] cache purge failed: %v", err)
			} else if n > 0 {
				log.Printf("[Service] purged %d expired cache entries", n)
			}
		})
		ttls = service.TTLs{
			Tip:     seconds(cfg.Cache.TipTTL),
			Fees:    seconds(cfg.Cache.FeesTTL),
			Mempool: seconds(cfg.Cache.MempoolTTL),
			Block:   seconds(cfg.Cache.BlockTTL),
			Price:   seconds(cfg.Cache.PriceTTL),
			Address: seconds(cfg.Cache.AddressTTL),
			Tx:      seconds(cfg.Cache.TxTTL),
			History: seconds(cfg.Cache.HistoryTTL),
		}
	}

	upstreamTimeout := cfg.Esplora.TimeoutDuration()
	if cfg.Chain.Provider == config.ProviderNode {
		upstreamTimeout = cfg.Bitcoin.TimeoutDuration()
	}

	svc := service.New(service.Options{
		Chain:           chain,
		Explorer:        explorer,
		Prices:          prices,
		Cache:           cache,
		TTLs:            ttls,
		BlockInterval:   cfg.Chain.BlockInterval(),
		UpstreamTimeout: upstreamTimeout,
	})

	router := api.NewRouter(svc)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}
	if nodeClient != nil {
		nodeClient.Shutdown()
	}

	log.Println("Server stopped")
}

func seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
