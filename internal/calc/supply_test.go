package calc

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupplyAt(t *testing.T) {
	cases := []struct {
		height int64
		btc    float64
	}{
		{0, 50},
		{209999, 10500000},
		{210000, 10500025},
		{839999, 19687500},
	}
	for _, tc := range cases {
		supply, err := SupplyAt(tc.height)
		require.NoError(t, err)
		assert.Equal(t, tc.btc, supply.ToBTC(), "height %d", tc.height)
	}
}

func TestSupplyAt_ConvergesBelowCap(t *testing.T) {
	supply, err := SupplyAt(100 * HalvingInterval)
	require.NoError(t, err)
	assert.Less(t, supply, btcutil.Amount(btcutil.MaxSatoshi))
	assert.Equal(t, btcutil.Amount(2099999997690000), supply)
}

func TestSupplyAt_Negative(t *testing.T) {
	_, err := SupplyAt(-1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHashrateFromDifficulty(t *testing.T) {
	// difficulty 1 is 2^32 hashes per block
	assert.InDelta(t, 4294967296.0/600, HashrateFromDifficulty(1, 10*time.Minute), 1e-6)
	assert.Zero(t, HashrateFromDifficulty(0, 10*time.Minute))
	assert.Zero(t, HashrateFromDifficulty(1, 0))
}
