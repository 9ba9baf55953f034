// internal/onchain/liquidity_test.go
package onchain

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqrtRatioAtTick(t *testing.T) {
	assert.Equal(t, 1.0, sqrtRatioAtTick(0))
	assert.InDelta(t, math.Sqrt(1.0001), sqrtRatioAtTick(1), 1e-12)

	// Reciprocal symmetry around tick zero.
	assert.InDelta(t, 1/sqrtRatioAtTick(1000), sqrtRatioAtTick(-1000), 1e-12)

	// Full-range boundaries stay finite.
	assert.False(t, math.IsInf(sqrtRatioAtTick(887220), 0))
	assert.Greater(t, sqrtRatioAtTick(-887220), 0.0)
}

func TestSqrtPriceX96ToFloat(t *testing.T) {
	one := new(big.Int).Lsh(big.NewInt(1), 96)
	assert.Equal(t, 1.0, sqrtPriceX96ToFloat(one))

	half := new(big.Int).Lsh(big.NewInt(1), 95)
	assert.Equal(t, 0.5, sqrtPriceX96ToFloat(half))

	assert.Equal(t, 0.0, sqrtPriceX96ToFloat(nil))
	assert.Equal(t, 0.0, sqrtPriceX96ToFloat(big.NewInt(0)))
}

func TestAmountsFromLiquidity(t *testing.T) {
	liquidity := big.NewInt(1_000_000_000_000)
	lower, upper := -1000, 1000

	t.Run("in range holds both tokens", func(t *testing.T) {
		amount0, amount1 := amountsFromLiquidity(liquidity, 1.0, 0, lower, upper)
		require.Greater(t, amount0, 0.0)
		require.Greater(t, amount1, 0.0)

		// A symmetric range at its midpoint splits close to 50/50.
		assert.InDelta(t, amount0, amount1, amount0*1e-2)
	})

	t.Run("below range holds only token0", func(t *testing.T) {
		amount0, amount1 := amountsFromLiquidity(liquidity, 0, -5000, lower, upper)
		assert.Greater(t, amount0, 0.0)
		assert.Zero(t, amount1)
	})

	t.Run("above range holds only token1", func(t *testing.T) {
		amount0, amount1 := amountsFromLiquidity(liquidity, 0, 5000, lower, upper)
		assert.Zero(t, amount0)
		assert.Greater(t, amount1, 0.0)
	})

	t.Run("upper bound is exclusive", func(t *testing.T) {
		amount0, _ := amountsFromLiquidity(liquidity, 0, upper, lower, upper)
		assert.Zero(t, amount0)
	})

	t.Run("zero sqrt price falls back to the tick ratio", func(t *testing.T) {
		fromTick0, fromTick1 := amountsFromLiquidity(liquidity, 0, 250, lower, upper)
		explicit0, explicit1 := amountsFromLiquidity(liquidity, sqrtRatioAtTick(250), 250, lower, upper)
		assert.Equal(t, explicit0, fromTick0)
		assert.Equal(t, explicit1, fromTick1)
	})

	t.Run("price drift outside the tick band never goes negative", func(t *testing.T) {
		// Current tick says in range, sqrt price sits just below the
		// lower boundary.
		amount0, amount1 := amountsFromLiquidity(liquidity, sqrtRatioAtTick(lower)*0.9999, lower, lower, upper)
		assert.GreaterOrEqual(t, amount0, 0.0)
		assert.GreaterOrEqual(t, amount1, 0.0)
	})

	t.Run("degenerate inputs", func(t *testing.T) {
		amount0, amount1 := amountsFromLiquidity(nil, 1.0, 0, lower, upper)
		assert.Zero(t, amount0)
		assert.Zero(t, amount1)

		amount0, amount1 = amountsFromLiquidity(big.NewInt(0), 1.0, 0, lower, upper)
		assert.Zero(t, amount0)
		assert.Zero(t, amount1)

		amount0, amount1 = amountsFromLiquidity(liquidity, 1.0, 0, upper, lower)
		assert.Zero(t, amount0)
		assert.Zero(t, amount1)
	})
}

func TestScaleAmount(t *testing.T) {
	assert.InDelta(t, 2.5, scaleAmount(big.NewInt(2_500_000), 6), 1e-12)
	assert.InDelta(t, 0.05, scaleAmount(big.NewInt(5e16), 18), 1e-12)
	assert.Zero(t, scaleAmount(nil, 18))
	assert.Zero(t, scaleAmount(big.NewInt(0), 6))
}
