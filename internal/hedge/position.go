// internal/hedge/position.go
package hedge

import "math/big"

// TokenAmount is one side of an LP position: a token balance together
// with its latest USD valuation.
type TokenAmount struct {
	Symbol   string  `json:"symbol"`
	Address  string  `json:"address"`
	Balance  float64 `json:"balance"`
	PriceUSD float64 `json:"price_usd"`
	ValueUSD float64 `json:"usd_value"`
	Decimals int     `json:"decimals,omitempty"`
}

// Reprice applies the latest known price for the token and refreshes the
// derived USD value. Symbols missing from the price map keep their
// previous price.
func (t *TokenAmount) Reprice(prices map[string]float64) {
	if px, ok := prices[t.Symbol]; ok {
		t.PriceUSD = px
	}
	t.ValueUSD = t.Balance * t.PriceUSD
}

// Position is a point-in-time snapshot of a Uniswap V3 LP position.
// Derived fields (per-side valuations, InRange, TotalValueUSD) are
// refreshed through Reprice; a published Position is never mutated.
type Position struct {
	NFTID            uint64      `json:"nft_id"`
	Token0           TokenAmount `json:"token0"`
	Token1           TokenAmount `json:"token1"`
	PoolAddress      string      `json:"pool_address"`
	FeeTier          int         `json:"fee_tier"`
	TickLower        int         `json:"tick_lower"`
	TickUpper        int         `json:"tick_upper"`
	Liquidity        *big.Int    `json:"liquidity"`
	UncollectedFees0 float64     `json:"uncollected_fees_token0"`
	UncollectedFees1 float64     `json:"uncollected_fees_token1"`
	// CurrentTick is nil when the pool could not be resolved; the
	// position is then treated as out of range and lowers confidence.
	CurrentTick   *int     `json:"current_tick,omitempty"`
	SqrtPriceX96  *big.Int `json:"sqrt_price_x96,omitempty"`
	InRange       bool     `json:"in_range"`
	TotalValueUSD float64  `json:"total_usd_value"`
}

// Reprice applies the latest token prices to both sides and recomputes
// every derived field: side valuations, range state and the position
// total (balances plus uncollected fees, in USD).
func (p *Position) Reprice(prices map[string]float64) {
	p.Token0.Reprice(prices)
	p.Token1.Reprice(prices)
	p.InRange = p.withinRange()
	p.TotalValueUSD = p.Token0.ValueUSD + p.Token1.ValueUSD +
		p.UncollectedFees0*p.Token0.PriceUSD +
		p.UncollectedFees1*p.Token1.PriceUSD
}

// withinRange uses the half-open convention of the pool contract:
// liquidity is active while tickLower <= currentTick < tickUpper.
func (p *Position) withinRange() bool {
	if p.CurrentTick == nil {
		return false
	}
	return *p.CurrentTick >= p.TickLower && *p.CurrentTick < p.TickUpper
}

// ExposureUSD returns the USD exposure this position contributes for a
// single token symbol, uncollected fees included. Both sides are checked
// so same-token pairs never double count silently.
func (p *Position) ExposureUSD(symbol string) float64 {
	var sum float64
	if p.Token0.Symbol == symbol {
		sum += p.Token0.ValueUSD + p.UncollectedFees0*p.Token0.PriceUSD
	}
	if p.Token1.Symbol == symbol {
		sum += p.Token1.ValueUSD + p.UncollectedFees1*p.Token1.PriceUSD
	}
	return sum
}

// TotalValue sums the derived totals of a position set.
func TotalValue(positions []Position) float64 {
	var total float64
	for i := range positions {
		total += positions[i].TotalValueUSD
	}
	return total
}

// CountInRange returns how many positions currently hold an active range.
func CountInRange(positions []Position) int {
	n := 0
	for i := range positions {
		if positions[i].InRange {
			n++
		}
	}
	return n
}
