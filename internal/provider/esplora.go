package provider

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/models"
)

// esploraBlock is the JSON shape of GET /block/:hash. Extras is only
// populated by mempool.space style deployments.
type esploraBlock struct {
	ID        string `json:"id"`
	Height    int64  `json:"height"`
	Timestamp int64  `json:"timestamp"`
	TxCount   int    `json:"tx_count"`
	// only reported by newer electrs builds
	Difficulty float64 `json:"difficulty"`
	Extras     *struct {
		Pool *struct {
			Name string `json:"name"`
		} `json:"pool"`
	} `json:"extras"`
}

type esploraAddress struct {
	Address    string `json:"address"`
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
		TxCount      int64 `json:"tx_count"`
	} `json:"chain_stats"`
}

type esploraTxStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type esploraTx struct {
	TxID string `json:"txid"`
	Fee  int64  `json:"fee"`
	Vout []struct {
		Value int64 `json:"value"`
	} `json:"vout"`
	Status esploraTxStatus `json:"status"`
}

type esploraMempool struct {
	Count int64 `json:"count"`
	VSize int64 `json:"vsize"`
}

// EsploraProvider reads chain data from an Esplora REST API
// (blockstream.info, mempool.space or a self-hosted electrs)
type EsploraProvider struct {
	client        *resty.Client
	blockInterval time.Duration
}

// NewEsploraProvider creates a provider for the API rooted at baseURL
func NewEsploraProvider(baseURL string, timeout, blockInterval time.Duration) (*EsploraProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("esplora base url not set")
	}
	if blockInterval <= 0 {
		blockInterval = calc.DefaultBlockInterval
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "btc-apis")

	return &EsploraProvider{
		client:        client,
		blockInterval: blockInterval,
	}, nil
}

// CurrentHeight returns the tip height from GET /blocks/tip/height
func (p *EsploraProvider) CurrentHeight(ctx context.Context) (int64, error) {
	body, err := p.getText(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	height, err := strconv.ParseInt(body, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid tip height %q", ErrUpstreamUnavailable, body)
	}
	return height, nil
}

// FeeObservations converts GET /fee-estimates, a map of confirmation
// target to sat/vB, into observations ordered by target
func (p *EsploraProvider) FeeObservations(ctx context.Context) ([]calc.FeeObservation, error) {
	var estimates map[string]float64
	if err := p.getJSON(ctx, "/fee-estimates", &estimates); err != nil {
		return nil, err
	}

	targets := make([]int64, 0, len(estimates))
	for k := range estimates {
		target, err := strconv.ParseInt(k, 10, 64)
		if err != nil || target <= 0 {
			continue
		}
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })

	obs := make([]calc.FeeObservation, 0, len(targets))
	for _, target := range targets {
		rate := estimates[strconv.FormatInt(target, 10)]
		obs = append(obs, TargetObservation(target, rate, p.blockInterval))
	}
	return obs, nil
}

// Mempool returns the mempool summary from GET /mempool
func (p *EsploraProvider) Mempool(ctx context.Context) (*models.Mempool, error) {
	var m esploraMempool
	if err := p.getJSON(ctx, "/mempool", &m); err != nil {
		return nil, err
	}
	return &models.Mempool{TxCount: m.Count, VSizeBytes: m.VSize}, nil
}

// BlockByHeight resolves the hash with GET /block-height/:height
func (p *EsploraProvider) BlockByHeight(ctx context.Context, height int64) (*models.Block, error) {
	hash, err := p.getText(ctx, "/block-height/"+strconv.FormatInt(height, 10))
	if err != nil {
		return nil, err
	}
	return p.BlockByHash(ctx, hash)
}

// BlockByHash returns the block from GET /block/:hash
func (p *EsploraProvider) BlockByHash(ctx context.Context, hash string) (*models.Block, error) {
	var b esploraBlock
	if err := p.getJSON(ctx, "/block/"+hash, &b); err != nil {
		return nil, err
	}

	miner := "Unknown"
	if b.Extras != nil && b.Extras.Pool != nil && b.Extras.Pool.Name != "" {
		miner = b.Extras.Pool.Name
	}

	return &models.Block{
		Hash:       b.ID,
		Height:     b.Height,
		Timestamp:  time.Unix(b.Timestamp, 0).UTC(),
		TxCount:    b.TxCount,
		Miner:      miner,
		Difficulty: b.Difficulty,
	}, nil
}

// Address returns confirmed chain stats from GET /address/:address. The
// last confirmed tx time comes from the newest page of GET
// /address/:address/txs, which lists mempool entries first.
func (p *EsploraProvider) Address(ctx context.Context, address string) (*models.AddressStats, error) {
	var a esploraAddress
	if err := p.getJSON(ctx, "/address/"+address, &a); err != nil {
		return nil, err
	}

	stats := &models.AddressStats{
		Address:    address,
		FundedSats: a.ChainStats.FundedTxoSum,
		SpentSats:  a.ChainStats.SpentTxoSum,
		TxCount:    a.ChainStats.TxCount,
	}
	if stats.TxCount == 0 {
		return stats, nil
	}

	var txs []struct {
		Status esploraTxStatus `json:"status"`
	}
	if err := p.getJSON(ctx, "/address/"+address+"/txs", &txs); err != nil {
		return nil, err
	}
	for _, tx := range txs {
		if tx.Status.Confirmed {
			stats.LastTxTime = time.Unix(tx.Status.BlockTime, 0).UTC()
			break
		}
	}
	return stats, nil
}

// Transaction returns the transaction from GET /tx/:txid
func (p *EsploraProvider) Transaction(ctx context.Context, txid string) (*models.Transaction, error) {
	var tx esploraTx
	if err := p.getJSON(ctx, "/tx/"+txid, &tx); err != nil {
		return nil, err
	}

	var out int64
	for _, vout := range tx.Vout {
		out += vout.Value
	}
	result := &models.Transaction{
		TxID:       tx.TxID,
		Confirmed:  tx.Status.Confirmed,
		FeeSats:    tx.Fee,
		OutputSats: out,
	}
	if tx.Status.Confirmed {
		result.BlockHeight = tx.Status.BlockHeight
		result.BlockTime = time.Unix(tx.Status.BlockTime, 0).UTC()
	}
	return result, nil
}

func (p *EsploraProvider) getText(ctx context.Context, path string) (string, error) {
	resp, err := p.client.R().SetContext(ctx).Get(path)
	if err := checkResponse(path, resp, err); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.String()), nil
}

func (p *EsploraProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetResult(out).
		ForceContentType("application/json").
		Get(path)
	return checkResponse(path, resp, err)
}

// checkResponse maps transport failures and status codes onto the
// provider error kinds
func checkResponse(path string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrUpstreamUnavailable, path, err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: GET %s: %s", ErrUnsupported, path, strings.TrimSpace(resp.String()))
	case code < 200 || code >= 300:
		return fmt.Errorf("%w: GET %s: status %d", ErrUpstreamUnavailable, path, code)
	}
	return nil
}
