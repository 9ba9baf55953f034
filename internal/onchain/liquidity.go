// internal/onchain/liquidity.go
package onchain

import (
	"math"
	"math/big"
)

// sqrtRatioAtTick returns sqrt(1.0001^tick), the pool's price ratio at a
// tick boundary.
func sqrtRatioAtTick(tick int) float64 {
	return math.Pow(1.0001, float64(tick)/2)
}

// sqrtPriceX96ToFloat converts the Q64.96 fixed-point sqrt price from
// slot0 into a plain float.
func sqrtPriceX96ToFloat(sqrtPriceX96 *big.Int) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(sqrtPriceX96),
		big.NewFloat(math.Pow(2, 96)),
	).Float64()
	return f
}

// amountsFromLiquidity converts raw pool liquidity into the raw token
// amounts it represents at the current price, following the pool's own
// accounting: all token0 below the range, all token1 above it, a mix of
// both inside. sqrtPrice may be 0, in which case the tick boundary value
// is used instead.
func amountsFromLiquidity(liquidity *big.Int, sqrtPrice float64, currentTick, tickLower, tickUpper int) (amount0, amount1 float64) {
	if liquidity == nil || liquidity.Sign() == 0 || tickLower >= tickUpper {
		return 0, 0
	}
	l, _ := new(big.Float).SetInt(liquidity).Float64()
	sqrtLower := sqrtRatioAtTick(tickLower)
	sqrtUpper := sqrtRatioAtTick(tickUpper)

	switch {
	case currentTick < tickLower:
		amount0 = l * (1/sqrtLower - 1/sqrtUpper)
	case currentTick >= tickUpper:
		amount1 = l * (sqrtUpper - sqrtLower)
	default:
		cur := sqrtPrice
		if cur == 0 {
			cur = sqrtRatioAtTick(currentTick)
		}
		amount0 = l * (1/cur - 1/sqrtUpper)
		amount1 = l * (cur - sqrtLower)
	}
	// slot0's sqrt price can sit a hair outside the current tick's band.
	return math.Max(amount0, 0), math.Max(amount1, 0)
}
