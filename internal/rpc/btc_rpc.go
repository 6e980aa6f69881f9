package rpc

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/thanhnp/btc-apis/internal/config"
	"github.com/thanhnp/btc-apis/pkg/semver"
)

// Compatible btcd JSON-RPC API versions
var compatibleChainServerAPIs = []semver.Semver{
	semver.NewSemver(1, 0, 0),
	semver.NewSemver(2, 0, 0),
	semver.NewSemver(3, 0, 0),
	semver.NewSemver(4, 0, 0),
	semver.NewSemver(5, 0, 0),
	semver.NewSemver(6, 0, 0),
	semver.NewSemver(7, 0, 0),
	semver.NewSemver(8, 0, 0),
}

// NodeClient is the subset of rpcclient.Client used by NodeProvider
type NodeClient interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlockVerbose(hash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error)
	GetMempoolInfo() (*btcjson.GetMempoolInfoResult, error)
	EstimateSmartFee(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (*btcjson.EstimateSmartFeeResult, error)
}

// NodeRPC is an rpcclient.Client with the calls it has no typed wrapper for
type NodeRPC struct {
	*rpcclient.Client
}

var _ NodeClient = (*NodeRPC)(nil)

// GetMempoolInfo issues getmempoolinfo as a raw request
func (c *NodeRPC) GetMempoolInfo() (*btcjson.GetMempoolInfoResult, error) {
	raw, err := c.RawRequest("getmempoolinfo", nil)
	if err != nil {
		return nil, err
	}
	return decodeMempoolInfo(raw)
}

func decodeMempoolInfo(raw json.RawMessage) (*btcjson.GetMempoolInfoResult, error) {
	var info btcjson.GetMempoolInfoResult
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to decode getmempoolinfo: %w", err)
	}
	return &info, nil
}

// ConnectNode connects to a bitcoind node over HTTP POST or to a btcd node
// over websocket, depending on cfg.HTTPMode
func ConnectNode(cfg *config.NodeConfig) (*NodeRPC, error) {
	var certs []byte
	var err error

	if !cfg.DisableTLS && cfg.Cert != "" {
		certs, err = os.ReadFile(cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate: %w", err)
		}
	}

	var connCfg *rpcclient.ConnConfig
	if cfg.HTTPMode {
		// HTTP POST mode for bitcoind
		log.Printf("[Node] Using HTTP POST mode for %s as user %s", cfg.Host, cfg.User)
		connCfg = &rpcclient.ConnConfig{
			Host:         cfg.Host,
			User:         cfg.User,
			Pass:         cfg.Pass,
			HTTPPostMode: true,
			DisableTLS:   cfg.DisableTLS,
			Certificates: certs,
		}
	} else {
		// WebSocket mode for btcd
		log.Printf("[Node] Attempting to connect to btcd RPC %s as user %s (tls=%v)",
			cfg.Host, cfg.User, !cfg.DisableTLS)
		connCfg = &rpcclient.ConnConfig{
			Host:         cfg.Host,
			Endpoint:     "ws",
			User:         cfg.User,
			Pass:         cfg.Pass,
			Certificates: certs,
			DisableTLS:   cfg.DisableTLS,
		}
	}

	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}

	// bitcoind has no version command, so only btcd is checked
	if !cfg.HTTPMode {
		nodeVer, err := checkBtcdVersion(client)
		if err != nil {
			client.Shutdown()
			return nil, err
		}
		log.Printf("[Node] Connected to btcd, API version: %s", nodeVer)
	}

	return &NodeRPC{Client: client}, nil
}

// checkBtcdVersion ensures the RPC server has a compatible API version
func checkBtcdVersion(client *rpcclient.Client) (semver.Semver, error) {
	var nodeVer semver.Semver

	ver, err := client.Version()
	if err != nil {
		log.Println("[Node] Unable to get RPC version: ", err)
		return nodeVer, fmt.Errorf("unable to get node RPC version")
	}

	btcdVer := ver["btcdjsonrpcapi"]
	nodeVer = semver.NewSemver(btcdVer.Major, btcdVer.Minor, btcdVer.Patch)

	if !semver.AnyCompatible(compatibleChainServerAPIs, nodeVer) {
		return nodeVer, fmt.Errorf("Node JSON-RPC server does not have "+
			"a compatible API version. Advertises %v but requires one of: %v",
			nodeVer, compatibleChainServerAPIs)
	}

	return nodeVer, nil
}
