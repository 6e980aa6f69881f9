package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/provider"
)

const genesisHash = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"

type fakeNode struct {
	height   int64
	fees     map[int64]*btcjson.EstimateSmartFeeResult
	feeModes []btcjson.EstimateSmartFeeMode
	mempool  *btcjson.GetMempoolInfoResult
	blocks   map[string]*btcjson.GetBlockVerboseResult
	hashes   map[int64]string
	err      error
	block    chan struct{}
}

func (f *fakeNode) GetBlockCount() (int64, error) {
	if f.block != nil {
		<-f.block
	}
	return f.height, f.err
}

func (f *fakeNode) GetBlockHash(height int64) (*chainhash.Hash, error) {
	h, ok := f.hashes[height]
	if !ok {
		return nil, &btcjson.RPCError{Code: btcjson.ErrRPCInvalidParameter, Message: "Block height out of range"}
	}
	return chainhash.NewHashFromStr(h)
}

func (f *fakeNode) GetBlockVerbose(hash *chainhash.Hash) (*btcjson.GetBlockVerboseResult, error) {
	b, ok := f.blocks[hash.String()]
	if !ok {
		return nil, &btcjson.RPCError{Code: btcjson.ErrRPCBlockNotFound, Message: "Block not found"}
	}
	return b, nil
}

func (f *fakeNode) GetMempoolInfo() (*btcjson.GetMempoolInfoResult, error) {
	return f.mempool, f.err
}

func (f *fakeNode) EstimateSmartFee(confTarget int64, mode *btcjson.EstimateSmartFeeMode) (*btcjson.EstimateSmartFeeResult, error) {
	if mode != nil {
		f.feeModes = append(f.feeModes, *mode)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.fees[confTarget], nil
}

func feeRate(v float64) *float64 { return &v }

func TestNodeProvider_CurrentHeight(t *testing.T) {
	p := NewNodeProvider(&fakeNode{height: 866000}, 0)
	height, err := p.CurrentHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(866000), height)
}

func TestNodeProvider_FeeObservations(t *testing.T) {
	node := &fakeNode{fees: map[int64]*btcjson.EstimateSmartFeeResult{
		2:   {FeeRate: feeRate(0.00025), Blocks: 2},
		6:   {FeeRate: feeRate(0.0001), Blocks: 6},
		144: {Errors: []string{"Insufficient data or no feerate found"}, Blocks: 144},
	}}
	p := NewNodeProvider(node, 10*time.Minute)

	obs, err := p.FeeObservations(context.Background())
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, calc.FeeObservation{SatPerByte: 25, ConfirmMinutes: 20, Tier: calc.TierFast}, obs[0])
	assert.Equal(t, calc.FeeObservation{SatPerByte: 10, ConfirmMinutes: 60, Tier: calc.TierMedium}, obs[1])

	for _, mode := range node.feeModes {
		assert.Equal(t, btcjson.EstimateModeEconomical, mode)
	}
}

func TestNodeProvider_Mempool(t *testing.T) {
	p := NewNodeProvider(&fakeNode{mempool: &btcjson.GetMempoolInfoResult{Size: 1200, Bytes: 3_400_000}}, 0)
	m, err := p.Mempool(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1200), m.TxCount)
	assert.Equal(t, 3.4, m.SizeMB())
}

func TestNodeProvider_Blocks(t *testing.T) {
	node := &fakeNode{
		hashes: map[int64]string{0: genesisHash},
		blocks: map[string]*btcjson.GetBlockVerboseResult{
			genesisHash: {
				Hash:   genesisHash,
				Height: 0,
				Time:   1231006505,
				Tx:     []string{"4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"},
			},
		},
	}
	p := NewNodeProvider(node, 0)

	b, err := p.BlockByHeight(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, genesisHash, b.Hash)
	assert.Equal(t, 1, b.TxCount)
	assert.Equal(t, time.Date(2009, 1, 3, 18, 15, 5, 0, time.UTC), b.Timestamp)
	assert.Equal(t, "Unknown", b.Miner)

	_, err = p.BlockByHeight(context.Background(), 1)
	assert.ErrorIs(t, err, provider.ErrNotFound)

	_, err = p.BlockByHash(context.Background(), "00000000839a8e6886ab5951d76f411475428afc90947ee320161bbf18eb6048")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	_, err = p.BlockByHash(context.Background(), "not-hex")
	assert.ErrorIs(t, err, provider.ErrUnsupported)
}

func TestNodeProvider_TransportError(t *testing.T) {
	p := NewNodeProvider(&fakeNode{err: errors.New("connection refused")}, 0)

	_, err := p.CurrentHeight(context.Background())
	assert.ErrorIs(t, err, provider.ErrUpstreamUnavailable)

	_, err = p.FeeObservations(context.Background())
	assert.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestNodeProvider_ContextCancelled(t *testing.T) {
	node := &fakeNode{block: make(chan struct{})}
	defer close(node.block)
	p := NewNodeProvider(node, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.CurrentHeight(ctx)
	assert.ErrorIs(t, err, provider.ErrUpstreamUnavailable)
}

func TestBtcPerKvBToSatPerVByte(t *testing.T) {
	v, err := btcPerKvBToSatPerVByte(0.00001)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = btcPerKvBToSatPerVByte(0.00001234)
	require.NoError(t, err)
	assert.InDelta(t, 1.234, v, 1e-9)
}
