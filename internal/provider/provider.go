// Package provider fetches raw chain and market data from upstream
// services. Every failure to reach or understand an upstream wraps
// ErrUpstreamUnavailable; no retries are attempted here.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/thanhnp/btc-apis/internal/calc"
	"github.com/thanhnp/btc-apis/internal/models"
)

var (
	// ErrUpstreamUnavailable is returned when a backing provider cannot respond
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNotFound is returned when the upstream does not know the requested object
	ErrNotFound = errors.New("not found")

	// ErrUnsupported is returned for requests the upstream rejects as invalid,
	// such as an unknown fiat currency
	ErrUnsupported = errors.New("unsupported")
)

// ChainDataProvider supplies chain state to the calculators
type ChainDataProvider interface {
	// CurrentHeight returns the height of the best block
	CurrentHeight(ctx context.Context) (int64, error)

	// FeeObservations returns fee rate samples with expected confirmation times
	FeeObservations(ctx context.Context) ([]calc.FeeObservation, error)

	// Mempool returns the current mempool size
	Mempool(ctx context.Context) (*models.Mempool, error)

	// BlockByHeight returns the block at the given height on the best chain
	BlockByHeight(ctx context.Context, height int64) (*models.Block, error)

	// BlockByHash returns the block with the given hash
	BlockByHash(ctx context.Context, hash string) (*models.Block, error)
}

// ExplorerProvider looks up addresses and transactions, which needs an
// address-indexed backend such as Esplora
type ExplorerProvider interface {
	// Address returns the confirmed activity of a single address
	Address(ctx context.Context, address string) (*models.AddressStats, error)

	// Transaction returns the transaction with the given id
	Transaction(ctx context.Context, txid string) (*models.Transaction, error)
}

// PriceProvider supplies BTC prices
type PriceProvider interface {
	// Price returns the spot price in fiat
	Price(ctx context.Context, fiat string) (*models.Price, error)

	// HistoricalPrice returns the USD market snapshot for the UTC day of date
	HistoricalPrice(ctx context.Context, date time.Time) (*models.HistoricalPrice, error)
}

// Confirmation targets (in blocks) reported as the named tiers
var tierTargets = map[int64]calc.Tier{
	2:   calc.TierFast,
	6:   calc.TierMedium,
	144: calc.TierSlow,
}

// TargetObservation converts a fee estimate for a confirmation target
// into an observation, labelling the well-known targets with their tier
func TargetObservation(target int64, satPerByte float64, blockInterval time.Duration) calc.FeeObservation {
	return calc.FeeObservation{
		SatPerByte:     satPerByte,
		ConfirmMinutes: float64(target) * blockInterval.Minutes(),
		Tier:           tierTargets[target],
	}
}
