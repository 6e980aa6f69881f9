package calc

import (
	"fmt"
	"math"
	"time"

	"github.com/btcsuite/btcd/btcutil"
)

// SupplyAt returns the total subsidy issued by blocks 0 through height,
// using the consensus integer halving of the per-block subsidy
func SupplyAt(height int64) (btcutil.Amount, error) {
	if height < 0 {
		return 0, fmt.Errorf("%w: negative block height %d", ErrInvalidInput, height)
	}

	var total int64
	blocks := height + 1
	subsidy := int64(InitialRewardBTC * btcutil.SatoshiPerBitcoin)
	for blocks > 0 && subsidy > 0 {
		n := min(blocks, HalvingInterval)
		total += n * subsidy
		blocks -= n
		subsidy >>= 1
	}
	return btcutil.Amount(total), nil
}

// HashrateFromDifficulty returns the hashes per second needed to find a
// block at difficulty once every interval
func HashrateFromDifficulty(difficulty float64, interval time.Duration) float64 {
	if difficulty <= 0 || interval <= 0 {
		return 0
	}
	return difficulty * math.Exp2(32) / interval.Seconds()
}
