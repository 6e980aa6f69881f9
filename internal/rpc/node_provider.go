package rpc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/provider"
)

// Confirmation targets queried with estimatesmartfee
var feeTargets = []int64{2, 6, 144}

// NodeProvider serves chain data from a bitcoind or btcd JSON-RPC node
type NodeProvider struct {
	client        NodeClient
	blockInterval time.Duration
}

// NewNodeProvider wraps an RPC client
func NewNodeProvider(client NodeClient, blockInterval time.Duration) *NodeProvider {
	if blockInterval <= 0 {
		blockInterval = calc.DefaultBlockInterval
	}
	return &NodeProvider{
		client:        client,
		blockInterval: blockInterval,
	}
}

// CurrentHeight returns the result of getblockcount
func (p *NodeProvider) CurrentHeight(ctx context.Context) (int64, error) {
	return call(ctx, "getblockcount", p.client.GetBlockCount)
}

// FeeObservations runs estimatesmartfee for each target. Targets the node
// cannot estimate yet are skipped rather than failing the whole call.
func (p *NodeProvider) FeeObservations(ctx context.Context) ([]calc.FeeObservation, error) {
	mode := btcjson.EstimateModeEconomical

	var obs []calc.FeeObservation
	for _, target := range feeTargets {
		target := target
		res, err := call(ctx, "estimatesmartfee", func() (*btcjson.EstimateSmartFeeResult, error) {
			return p.client.EstimateSmartFee(target, &mode)
		})
		if err != nil {
			return nil, err
		}
		if res.FeeRate == nil {
			log.Printf("[Node] estimatesmartfee %d: no estimate %v", target, res.Errors)
			continue
		}
		satPerByte, err := btcPerKvBToSatPerVByte(*res.FeeRate)
		if err != nil {
			return nil, fmt.Errorf("%w: estimatesmartfee %d: %v", provider.ErrUpstreamUnavailable, target, err)
		}
		obs = append(obs, provider.TargetObservation(target, satPerByte, p.blockInterval))
	}
	return obs, nil
}

// Mempool returns the result of getmempoolinfo. The bytes field is the
// sum of virtual transaction sizes.
func (p *NodeProvider) Mempool(ctx context.Context) (*models.Mempool, error) {
	info, err := call(ctx, "getmempoolinfo", p.client.GetMempoolInfo)
	if err != nil {
		return nil, err
	}
	return &models.Mempool{TxCount: info.Size, VSizeBytes: info.Bytes}, nil
}

// BlockByHeight resolves the hash with getblockhash and loads the block
func (p *NodeProvider) BlockByHeight(ctx context.Context, height int64) (*models.Block, error) {
	hash, err := call(ctx, "getblockhash", func() (*chainhash.Hash, error) {
		return p.client.GetBlockHash(height)
	})
	if err != nil {
		return nil, err
	}
	return p.block(ctx, hash)
}

// BlockByHash loads the block with getblock
func (p *NodeProvider) BlockByHash(ctx context.Context, hash string) (*models.Block, error) {
	h, err := chainhash.NewHashFromStr(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: block hash %q: %v", provider.ErrUnsupported, hash, err)
	}
	return p.block(ctx, h)
}

func (p *NodeProvider) block(ctx context.Context, hash *chainhash.Hash) (*models.Block, error) {
	blockVerbose, err := call(ctx, "getblock", func() (*btcjson.GetBlockVerboseResult, error) {
		return p.client.GetBlockVerbose(hash)
	})
	if err != nil {
		return nil, err
	}
	return &models.Block{
		Hash:      blockVerbose.Hash,
		Height:    blockVerbose.Height,
		Timestamp: time.Unix(blockVerbose.Time, 0).UTC(),
		TxCount:   len(blockVerbose.Tx),
		Miner:     "Unknown",

		Difficulty: blockVerbose.Difficulty,
	}, nil
}

// btcPerKvBToSatPerVByte converts the node's BTC/kvB fee rate
func btcPerKvBToSatPerVByte(rate float64) (float64, error) {
	amt, err := btcutil.NewAmount(rate)
	if err != nil {
		return 0, err
	}
	return float64(amt) / 1000, nil
}

// call runs a blocking RPC, returning early if ctx is done. rpcclient has
// no context support so an abandoned call finishes in the background.
func call[T any](ctx context.Context, method string, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	var zero T
	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %s: %v", provider.ErrUpstreamUnavailable, method, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return zero, wrapRPCError(method, r.err)
		}
		return r.v, nil
	}
}

// wrapRPCError maps node error codes for unknown blocks and out of range
// heights to provider.ErrNotFound
func wrapRPCError(method string, err error) error {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case btcjson.ErrRPCBlockNotFound, btcjson.ErrRPCInvalidParameter:
			return fmt.Errorf("%w: %s: %v", provider.ErrNotFound, method, err)
		}
	}
	return fmt.Errorf("%w: %s: %v", provider.ErrUpstreamUnavailable, method, err)
}
