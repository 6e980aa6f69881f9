package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in chain.provider
const (
	ProviderEsplora = "esplora"
	ProviderNode    = "node"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Chain   ChainConfig   `yaml:"chain"`
	Esplora HTTPAPIConfig `yaml:"esplora"`
	Bitcoin NodeConfig    `yaml:"bitcoin"`
	Price   HTTPAPIConfig `yaml:"price"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ChainConfig selects the chain data source and its timing assumptions
type ChainConfig struct {
	Provider            string `yaml:"provider"`              // "esplora" or "node"
	AverageBlockSeconds int    `yaml:"average_block_seconds"` // used for halving date estimates
}

// HTTPAPIConfig represents an upstream REST API
type HTTPAPIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// NodeConfig represents the configuration for a bitcoind/btcd node
type NodeConfig struct {
	Host       string `yaml:"host"`
	User       string `yaml:"user"`
	Pass       string `yaml:"pass"`
	Cert       string `yaml:"cert"`
	DisableTLS bool   `yaml:"disable_tls"`
	HTTPMode   bool   `yaml:"http_mode"` // Use HTTP POST instead of WebSocket (for bitcoind)
	Timeout    int    `yaml:"timeout"`   // seconds
}

// CacheConfig holds upstream response TTLs in seconds. Zero disables
// caching for that kind of response.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	TipTTL     int  `yaml:"tip_ttl"`
	FeesTTL    int  `yaml:"fees_ttl"`
	MempoolTTL int  `yaml:"mempool_ttl"`
	BlockTTL   int  `yaml:"block_ttl"`
	PriceTTL   int  `yaml:"price_ttl"`
	AddressTTL int  `yaml:"address_ttl"`
	TxTTL      int  `yaml:"tx_ttl"`
	HistoryTTL int  `yaml:"history_ttl"`
}

// Default returns the configuration used when no file or env overrides
// are present
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Chain: ChainConfig{
			Provider:            ProviderEsplora,
			AverageBlockSeconds: 600,
		},
		Esplora: HTTPAPIConfig{
			BaseURL: "https://blockstream.info/api",
			Timeout: 5,
		},
		Bitcoin: NodeConfig{
			Host:     "127.0.0.1:8332",
			HTTPMode: true,
			Timeout:  5,
		},
		Price: HTTPAPIConfig{
			BaseURL: "https://api.coingecko.com/api/v3",
			Timeout: 5,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TipTTL:     30,
			FeesTTL:    30,
			MempoolTTL: 30,
			BlockTTL:   3600,
			PriceTTL:   10,
			AddressTTL: 30,
			TxTTL:      30,
			HistoryTTL: 86400,
		},
	}
}

// Load loads configuration from a YAML file and environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	// Load from YAML file if it exists
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	switch c.Chain.Provider {
	case ProviderEsplora:
		if c.Esplora.BaseURL == "" {
			return fmt.Errorf("esplora.base_url is required for the esplora provider")
		}
	case ProviderNode:
		if c.Bitcoin.Host == "" {
			return fmt.Errorf("bitcoin.host is required for the node provider")
		}
	default:
		return fmt.Errorf("unknown chain provider %q", c.Chain.Provider)
	}
	// one block per day at most keeps the halving ETA inside time.Duration
	if c.Chain.AverageBlockSeconds <= 0 || c.Chain.AverageBlockSeconds > 86400 {
		return fmt.Errorf("chain.average_block_seconds must be in (0, 86400], got %d", c.Chain.AverageBlockSeconds)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// BlockInterval returns the configured average block spacing
func (c *ChainConfig) BlockInterval() time.Duration {
	return time.Duration(c.AverageBlockSeconds) * time.Second
}

// TimeoutDuration returns the request timeout, defaulting to five seconds
func (c *HTTPAPIConfig) TimeoutDuration() time.Duration {
	return secondsOrDefault(c.Timeout)
}

// TimeoutDuration returns the RPC timeout, defaulting to five seconds
func (c *NodeConfig) TimeoutDuration() time.Duration {
	return secondsOrDefault(c.Timeout)
}

func secondsOrDefault(s int) time.Duration {
	if s <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s) * time.Second
}

func (c *Config) loadEnv() {
	// Server config
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}

	// Chain config
	if provider := os.Getenv("CHAIN_PROVIDER"); provider != "" {
		c.Chain.Provider = provider
	}
	if secs := os.Getenv("AVG_BLOCK_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			c.Chain.AverageBlockSeconds = s
		}
	}

	// Upstream APIs
	if url := os.Getenv("ESPLORA_URL"); url != "" {
		c.Esplora.BaseURL = url
	}
	if url := os.Getenv("PRICE_URL"); url != "" {
		c.Price.BaseURL = url
	}

	// Bitcoin node config
	c.loadNodeEnv(&c.Bitcoin, "BTC")

	if enabled := os.Getenv("CACHE_ENABLED"); enabled != "" {
		c.Cache.Enabled = enabled == "true" || enabled == "1"
	}
}

func (c *Config) loadNodeEnv(node *NodeConfig, prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		node.Host = host
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		node.User = user
	}
	if pass := os.Getenv(prefix + "_PASS"); pass != "" {
		node.Pass = pass
	}
	if cert := os.Getenv(prefix + "_CERT"); cert != "" {
		node.Cert = cert
	}
	if disableTLS := os.Getenv(prefix + "_DISABLE_TLS"); disableTLS != "" {
		node.DisableTLS = disableTLS == "true" || disableTLS == "1"
	}
	if httpMode := os.Getenv(prefix + "_HTTP_MODE"); httpMode != "" {
		node.HTTPMode = httpMode == "true" || httpMode == "1"
	}
}
