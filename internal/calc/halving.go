// Package calc holds the pure computations behind the halving and fee
// endpoints. Nothing here performs I/O; callers supply chain data fetched
// elsewhere.
package calc

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// HalvingInterval is the number of blocks between subsidy halvings
	HalvingInterval int64 = 210000

	// InitialRewardBTC is the block subsidy of the first era
	InitialRewardBTC float64 = 50

	// DefaultBlockInterval is the target spacing between blocks
	DefaultBlockInterval = 600 * time.Second
)

var (
	// ErrInvalidInput is returned for inputs outside a function's domain
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData is returned when there is nothing to estimate from
	ErrInsufficientData = errors.New("insufficient data")
)

// Clock returns the current time
type Clock func() time.Time

// HalvingInfo describes the next halving relative to a block height
type HalvingInfo struct {
	CurrentHeight     int64
	NextHalvingHeight int64
	BlocksRemaining   int64
	HalvingIndex      int64
	TotalHalvings     int64
	CurrentRewardBTC  float64
	NextRewardBTC     float64
	SecondsRemaining  int64
	EstimatedDate     time.Time
}

// HalvingCalculator computes halving metadata from a block height
type HalvingCalculator struct {
	blockInterval time.Duration
	now           Clock
}

// NewHalvingCalculator creates a HalvingCalculator. A non-positive interval
// falls back to DefaultBlockInterval and a nil clock to time.Now.
func NewHalvingCalculator(blockInterval time.Duration, now Clock) *HalvingCalculator {
	if blockInterval <= 0 {
		blockInterval = DefaultBlockInterval
	}
	if now == nil {
		now = time.Now
	}
	return &HalvingCalculator{
		blockInterval: blockInterval,
		now:           now,
	}
}

// Compute returns the halving info for the given height.
// A height exactly on a halving boundary reports the following halving.
func (c *HalvingCalculator) Compute(currentHeight int64) (*HalvingInfo, error) {
	if currentHeight < 0 {
		return nil, fmt.Errorf("%w: negative block height %d", ErrInvalidInput, currentHeight)
	}

	if currentHeight > math.MaxInt64-HalvingInterval {
		return nil, fmt.Errorf("%w: block height %d out of range", ErrInvalidInput, currentHeight)
	}

	index := currentHeight/HalvingInterval + 1
	next := index * HalvingInterval
	remaining := next - currentHeight
	eta := time.Duration(remaining) * c.blockInterval

	return &HalvingInfo{
		CurrentHeight:     currentHeight,
		NextHalvingHeight: next,
		BlocksRemaining:   remaining,
		HalvingIndex:      index,
		TotalHalvings:     index - 1,
		CurrentRewardBTC:  rewardForEra(index - 1),
		NextRewardBTC:     rewardForEra(index),
		SecondsRemaining:  int64(eta / time.Second),
		EstimatedDate:     c.now().UTC().Add(eta),
	}, nil
}

// SubsidyAt returns the block subsidy in BTC paid at the given height
func SubsidyAt(height int64) (float64, error) {
	if height < 0 {
		return 0, fmt.Errorf("%w: negative block height %d", ErrInvalidInput, height)
	}
	return rewardForEra(height / HalvingInterval), nil
}

// rewardForEra halves the initial reward once per completed era.
// Ldexp keeps every halving exact until the value underflows to zero.
func rewardForEra(era int64) float64 {
	if era > math.MaxInt32 {
		return 0
	}
	return math.Ldexp(InitialRewardBTC, -int(era))
}
