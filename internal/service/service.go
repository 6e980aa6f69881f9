// Package service combines the upstream providers, the response cache and
// the calculators into the operations served by the HTTP API.
package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/models"
	"github.com/thanhnp/btc-apis/internal/provider"
	"github.com/thanhnp/btc-apis/internal/storage"
)

// TTLs controls how long each kind of upstream response is cached
type TTLs struct {
	Tip     time.Duration
	Fees    time.Duration
	Mempool time.Duration
	Block   time.Duration
	Price   time.Duration
	Address time.Duration
	Tx      time.Duration
	History time.Duration
}

// Options configures a Service. Explorer, Cache and Prices may be nil.
type Options struct {
	Chain         provider.ChainDataProvider
	Explorer      provider.ExplorerProvider
	Prices        provider.PriceProvider
	Cache         *storage.Cache
	TTLs          TTLs
	BlockInterval time.Duration
	Clock         calc.Clock
	Registry      metrics.Registry

	// UpstreamTimeout bounds each shared upstream call, default 10s
	UpstreamTimeout time.Duration
}

// Service answers API requests from upstream data
type Service struct {
	chain    provider.ChainDataProvider
	explorer provider.ExplorerProvider
	prices   provider.PriceProvider
	cache    *storage.Cache
	ttls     TTLs
	timeout  time.Duration
	halving  *calc.HalvingCalculator
	interval time.Duration
	now      calc.Clock
	group    singleflight.Group
	registry metrics.Registry
}

// FeeReport is a fee estimate together with the mempool size it was made against
type FeeReport struct {
	Estimate *calc.FeeEstimate
	Mempool  *models.Mempool
}

// BlockReport is a block with the subsidy paid at its height
type BlockReport struct {
	Block     *models.Block
	RewardBTC float64
}

// DefaultMediumSatPerByte stands in for the medium tier when the upstream
// has no usable fee estimates
const DefaultMediumSatPerByte = 25

// MempoolReport is the mempool summary with the medium tier fee rate.
// FeeEstimated is false when DefaultMediumSatPerByte was used.
type MempoolReport struct {
	Mempool          *models.Mempool
	MediumSatPerByte float64
	FeeEstimated     bool
}

// StatsReport summarizes network state at the tip
type StatsReport struct {
	Height     int64
	Difficulty float64
	HashrateHs float64
	SupplyBTC  float64
	Mempool    *models.Mempool
}

// AddressReport is an address's activity with the USD price used to value it
type AddressReport struct {
	Stats    *models.AddressStats
	PriceUSD float64
}

// TxReport is a transaction with its confirmation count against the tip
type TxReport struct {
	Tx            *models.Transaction
	Confirmations int64
}

// New creates a Service
func New(opts Options) *Service {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	registry := opts.Registry
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	interval := opts.BlockInterval
	if interval <= 0 {
		interval = calc.DefaultBlockInterval
	}
	timeout := opts.UpstreamTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		chain:    opts.Chain,
		explorer: opts.Explorer,
		prices:   opts.Prices,
		cache:    opts.Cache,
		ttls:     opts.TTLs,
		timeout:  timeout,
		halving:  calc.NewHalvingCalculator(opts.BlockInterval, now),
		interval: interval,
		now:      now,
		registry: registry,
	}
}

// Now returns the service clock's current time
func (s *Service) Now() time.Time {
	return s.now()
}

// Registry returns the metrics registry the service reports into
func (s *Service) Registry() metrics.Registry {
	return s.registry
}

// Halving returns next-halving metadata for the current tip
func (s *Service) Halving(ctx context.Context) (*calc.HalvingInfo, error) {
	height, err := s.tipHeight(ctx)
	if err != nil {
		return nil, err
	}
	return s.halving.Compute(height)
}

// tipHeight returns the best block height. A negative height is an
// upstream fault, not bad client input.
func (s *Service) tipHeight(ctx context.Context) (int64, error) {
	height, err := fetch(ctx, s, storage.CFTip, "height", s.ttls.Tip, s.chain.CurrentHeight)
	if err != nil {
		return 0, err
	}
	if height < 0 {
		return 0, fmt.Errorf("%w: negative tip height %d", provider.ErrUpstreamUnavailable, height)
	}
	return height, nil
}

// Fees returns the tiered fee estimate and the current mempool size.
// Both upstream calls run concurrently.
func (s *Service) Fees(ctx context.Context) (*FeeReport, error) {
	var (
		obs     []calc.FeeObservation
		mempool *models.Mempool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obs, err = s.feeObservations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		mempool, err = s.mempool(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	estimate, err := calc.EstimateFees(obs)
	if err != nil {
		return nil, err
	}
	return &FeeReport{Estimate: estimate, Mempool: mempool}, nil
}

// Mempool returns the mempool summary with the medium tier fee rate.
// Fee estimates that are missing or unreachable fall back to
// DefaultMediumSatPerByte rather than failing the summary.
func (s *Service) Mempool(ctx context.Context) (*MempoolReport, error) {
	var (
		mempool *models.Mempool
		obs     []calc.FeeObservation
		feeErr  error
	)

	var g errgroup.Group
	g.Go(func() error {
		var err error
		mempool, err = s.mempool(ctx)
		return err
	})
	g.Go(func() error {
		obs, feeErr = s.feeObservations(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &MempoolReport{Mempool: mempool, MediumSatPerByte: DefaultMediumSatPerByte}
	if feeErr == nil {
		var estimate *calc.FeeEstimate
		if estimate, feeErr = calc.EstimateFees(obs); feeErr == nil {
			report.MediumSatPerByte = estimate.Medium.SatPerByte
			report.FeeEstimated = true
			return report, nil
		}
	}
	log.Printf("[Service] mempool fee rate falls back to %d sat/vB: %v", DefaultMediumSatPerByte, feeErr)
	return report, nil
}

func (s *Service) mempool(ctx context.Context) (*models.Mempool, error) {
	return fetch(ctx, s, storage.CFMempool, "summary", s.ttls.Mempool, s.chain.Mempool)
}

func (s *Service) feeObservations(ctx context.Context) ([]calc.FeeObservation, error) {
	return fetch(ctx, s, storage.CFFees, "observations", s.ttls.Fees, s.chain.FeeObservations)
}

// Stats returns difficulty, implied hashrate and issued supply at the tip
// together with the mempool size
func (s *Service) Stats(ctx context.Context) (*StatsReport, error) {
	var (
		block   *models.Block
		mempool *models.Mempool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		height, err := s.tipHeight(gctx)
		if err != nil {
			return err
		}
		block, err = s.block(gctx, height)
		return err
	})
	g.Go(func() error {
		var err error
		mempool, err = s.mempool(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	supply, err := calc.SupplyAt(block.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: upstream block height %d", provider.ErrUpstreamUnavailable, block.Height)
	}
	return &StatsReport{
		Height:     block.Height,
		Difficulty: block.Difficulty,
		HashrateHs: calc.HashrateFromDifficulty(block.Difficulty, s.interval),
		SupplyBTC:  supply.ToBTC(),
		Mempool:    mempool,
	}, nil
}

// BlockByHeight returns the block at height with its subsidy
func (s *Service) BlockByHeight(ctx context.Context, height int64) (*BlockReport, error) {
	if height < 0 {
		return nil, fmt.Errorf("%w: negative block height %d", calc.ErrInvalidInput, height)
	}
	block, err := s.block(ctx, height)
	if err != nil {
		return nil, err
	}
	return blockReport(block)
}

func (s *Service) block(ctx context.Context, height int64) (*models.Block, error) {
	return fetch(ctx, s, storage.CFBlocks, "h"+strconv.FormatInt(height, 10), s.ttls.Block,
		func(ctx context.Context) (*models.Block, error) {
			return s.chain.BlockByHeight(ctx, height)
		})
}

// BlockByHash returns the block with the given hash and its subsidy
func (s *Service) BlockByHash(ctx context.Context, hash string) (*BlockReport, error) {
	hash = strings.ToLower(hash)
	block, err := fetch(ctx, s, storage.CFBlocks, hash, s.ttls.Block,
		func(ctx context.Context) (*models.Block, error) {
			return s.chain.BlockByHash(ctx, hash)
		})
	if err != nil {
		return nil, err
	}
	return blockReport(block)
}

func blockReport(block *models.Block) (*BlockReport, error) {
	reward, err := calc.SubsidyAt(block.Height)
	if err != nil {
		return nil, fmt.Errorf("%w: upstream block height %d", provider.ErrUpstreamUnavailable, block.Height)
	}
	return &BlockReport{Block: block, RewardBTC: reward}, nil
}

// Price returns the BTC price in fiat
func (s *Service) Price(ctx context.Context, fiat string) (*models.Price, error) {
	if s.prices == nil {
		return nil, fmt.Errorf("%w: no price provider configured", provider.ErrUpstreamUnavailable)
	}
	fiat = strings.ToLower(fiat)
	return fetch(ctx, s, storage.CFPrices, fiat, s.ttls.Price,
		func(ctx context.Context) (*models.Price, error) {
			return s.prices.Price(ctx, fiat)
		})
}

// Address returns the confirmed activity of address, valued at the
// current USD price
func (s *Service) Address(ctx context.Context, address string) (*AddressReport, error) {
	if s.explorer == nil {
		return nil, fmt.Errorf("%w: no explorer configured", provider.ErrUpstreamUnavailable)
	}

	var (
		stats *models.AddressStats
		price *models.Price
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = fetch(gctx, s, storage.CFAddress, address, s.ttls.Address,
			func(ctx context.Context) (*models.AddressStats, error) {
				return s.explorer.Address(ctx, address)
			})
		return err
	})
	g.Go(func() error {
		var err error
		price, err = s.Price(gctx, "usd")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &AddressReport{Stats: stats, PriceUSD: price.Price}, nil
}

// Transaction returns the transaction txid and its confirmations
func (s *Service) Transaction(ctx context.Context, txid string) (*TxReport, error) {
	if s.explorer == nil {
		return nil, fmt.Errorf("%w: no explorer configured", provider.ErrUpstreamUnavailable)
	}
	txid = strings.ToLower(txid)

	var (
		tx  *models.Transaction
		tip int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tx, err = fetch(gctx, s, storage.CFTx, txid, s.ttls.Tx,
			func(ctx context.Context) (*models.Transaction, error) {
				return s.explorer.Transaction(ctx, txid)
			})
		return err
	})
	g.Go(func() error {
		var err error
		tip, err = s.tipHeight(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &TxReport{Tx: tx}
	if tx.Confirmed {
		// a cached tip may trail the block that confirmed tx
		report.Confirmations = max(tip-tx.BlockHeight+1, 1)
	}
	return report, nil
}

// HistoricalPrice returns the USD market snapshot for the UTC day of date
func (s *Service) HistoricalPrice(ctx context.Context, date time.Time) (*models.HistoricalPrice, error) {
	if s.prices == nil {
		return nil, fmt.Errorf("%w: no price provider configured", provider.ErrUpstreamUnavailable)
	}
	day := date.UTC().Truncate(24 * time.Hour)
	if day.After(s.now()) {
		return nil, fmt.Errorf("%w: date %s is in the future", calc.ErrInvalidInput, day.Format("2006-01-02"))
	}
	return fetch(ctx, s, storage.CFHistory, day.Format("2006-01-02"), s.ttls.History,
		func(ctx context.Context) (*models.HistoricalPrice, error) {
			return s.prices.HistoricalPrice(ctx, day)
		})
}

// fetch serves key from the cache when possible. Otherwise concurrent
// callers for the same key share a single upstream call whose result is
// cached for ttl. The shared call is detached from any one caller's
// cancellation and bounded by the service's upstream timeout instead.
func fetch[T any](ctx context.Context, s *Service, cf, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if s.cache != nil && ttl > 0 {
		var cached T
		ok, err := s.cache.Get(cf, key, &cached)
		if err != nil {
			log.Printf("[Service] cache read %s/%s failed: %v", cf, key, err)
		} else if ok {
			metrics.GetOrRegisterCounter("cache."+cf+".hits", s.registry).Inc(1)
			return cached, nil
		}
		metrics.GetOrRegisterCounter("cache."+cf+".misses", s.registry).Inc(1)
	}

	ch := s.group.DoChan(cf+"/"+key, func() (interface{}, error) {
		timer := metrics.GetOrRegisterTimer("upstream."+cf, s.registry)
		start := time.Now()
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		v, err := load(loadCtx)
		timer.UpdateSince(start)
		if err != nil {
			metrics.GetOrRegisterCounter("upstream."+cf+".errors", s.registry).Inc(1)
			log.Printf("[Service] upstream %s/%s failed: %v", cf, key, err)
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(cf, key, v, ttl); err != nil {
				log.Printf("[Service] cache write %s/%s failed: %v", cf, key, err)
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
