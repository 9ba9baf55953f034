// internal/sample/provider.go

// Package sample is the stand-in data source for running the hedger
// without an RPC endpoint: three fixed Base-mainnet-shaped LP positions
// over a gaussian price walk. Balances and ticks never change, so delta
// behavior stays reproducible while prices and uncollected fees drift
// like a live book.
package sample

import (
	"context"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

// Token addresses mirrored from Base mainnet (LINK keeps its L1 address,
// the pools here are synthetic anyway).
const (
	addrWETH = "0x4200000000000000000000000000000000000006"
	addrUSDC = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	addrWBTC = "0x2Ae3F1Ec7F1F5012CFEab0185bfc7aa3cf0DEc22"
	addrLINK = "0x514910771AF9Ca656af840dff83E8264EcF986CA"
	addrPool = "0x4C36388bE6F416A29C8d8ED537Dd4fBA5b4bE4e9"
)

// walkInterval gates the price walk so rapid polling does not turn the
// random walk into noise.
const walkInterval = 30 * time.Second

// Provider serves sample positions and prices. Safe for concurrent use.
type Provider struct {
	mu         sync.Mutex
	logger     *zap.Logger
	rng        *rand.Rand
	basePrices map[string]float64
	volatility map[string]float64
	positions  []hedge.Position
	lastWalk   time.Time
}

// NewProvider seeds the sample universe. The first walk happens no
// earlier than walkInterval after construction.
func NewProvider(logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		logger: logger.Named("sample"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		basePrices: map[string]float64{
			"ETH":  2000.0,
			"WETH": 2000.0,
			"USDC": 1.0,
			"USDT": 1.0,
			"DAI":  1.0,
			"WBTC": 45000.0,
			"LINK": 15.0,
			"UNI":  8.0,
			"AAVE": 120.0,
		},
		volatility: map[string]float64{
			"ETH":  0.02,
			"WETH": 0.02,
			"USDC": 0.001,
			"USDT": 0.001,
			"DAI":  0.001,
			"WBTC": 0.03,
			"LINK": 0.04,
			"UNI":  0.05,
			"AAVE": 0.06,
		},
		positions: buildPositions(),
		lastWalk:  time.Now(),
	}
}

func buildPositions() []hedge.Position {
	inRangeTick := 0
	outOfRangeTick := 1000000

	positions := []hedge.Position{
		{
			NFTID: 19542083,
			Token0: hedge.TokenAmount{
				Symbol:   "ETH",
				Address:  addrWETH,
				Balance:  2.5,
				PriceUSD: 2000.0,
				Decimals: 18,
			},
			Token1: hedge.TokenAmount{
				Symbol:   "USDC",
				Address:  addrUSDC,
				Balance:  5000.0,
				PriceUSD: 1.0,
				Decimals: 6,
			},
			PoolAddress:      addrPool,
			FeeTier:          500,
			TickLower:        -887220,
			TickUpper:        887220,
			Liquidity:        big.NewInt(1000000),
			UncollectedFees0: 0.05,
			UncollectedFees1: 25.0,
			CurrentTick:      &inRangeTick,
			SqrtPriceX96:     big.NewInt(0),
		},
		{
			NFTID: 19542084,
			Token0: hedge.TokenAmount{
				Symbol:   "WBTC",
				Address:  addrWBTC,
				Balance:  0.1,
				PriceUSD: 45000.0,
				Decimals: 8,
			},
			Token1: hedge.TokenAmount{
				Symbol:   "ETH",
				Address:  addrWETH,
				Balance:  2.25,
				PriceUSD: 2000.0,
				Decimals: 18,
			},
			PoolAddress:      addrPool,
			FeeTier:          3000,
			TickLower:        -276325,
			TickUpper:        276325,
			Liquidity:        big.NewInt(500000),
			UncollectedFees0: 0.001,
			UncollectedFees1: 0.1,
			CurrentTick:      &inRangeTick,
			SqrtPriceX96:     big.NewInt(0),
		},
		{
			NFTID: 19542085,
			Token0: hedge.TokenAmount{
				Symbol:   "LINK",
				Address:  addrLINK,
				Balance:  300.0,
				PriceUSD: 15.0,
				Decimals: 18,
			},
			Token1: hedge.TokenAmount{
				Symbol:   "USDC",
				Address:  addrUSDC,
				Balance:  3000.0,
				PriceUSD: 1.0,
				Decimals: 6,
			},
			PoolAddress:      addrPool,
			FeeTier:          500,
			TickLower:        -887220,
			TickUpper:        887220,
			Liquidity:        big.NewInt(200000),
			UncollectedFees0: 2.0,
			UncollectedFees1: 50.0,
			CurrentTick:      &outOfRangeTick,
			SqrtPriceX96:     big.NewInt(0),
		},
	}

	// Derive side valuations, range state and totals once up front.
	prices := map[string]float64{}
	for i := range positions {
		positions[i].Reprice(prices)
	}
	return positions
}

// GetPositions walks prices if due, accrues fees on in-range positions
// and returns the repriced set.
func (p *Provider) GetPositions(ctx context.Context) ([]hedge.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.walkPrices()

	out := make([]hedge.Position, len(p.positions))
	for i := range p.positions {
		pos := &p.positions[i]
		if pos.InRange {
			pos.UncollectedFees0 += 0.001 + p.rng.Float64()*0.009
			pos.UncollectedFees1 += 1 + p.rng.Float64()*9
		}
		pos.Reprice(p.basePrices)
		out[i] = *pos
	}
	return out, nil
}

// GetPrices returns a copy of the current price table.
func (p *Provider) GetPrices(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.walkPrices()

	out := make(map[string]float64, len(p.basePrices))
	for token, price := range p.basePrices {
		out[token] = price
	}
	return out, nil
}

// UpdatePrices overlays externally fetched prices onto the walk, the way
// the live price feed corrects the sample universe.
func (p *Provider) UpdatePrices(prices map[string]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for token, price := range prices {
		p.basePrices[token] = price
	}
	p.logger.Debug("Prices updated from external feed", zap.Int("count", len(prices)))
}

// SimulateTrade moves the traded token's price by 0.1% per $1000 of
// size, up for a buy and down for a sell, and returns the new price
// table.
func (p *Provider) SimulateTrade(token string, amountUSD float64, direction string) map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if price, ok := p.basePrices[token]; ok {
		impact := 0.001 * amountUSD / 1000
		if direction == "buy" {
			p.basePrices[token] = price * (1 + impact)
		} else {
			p.basePrices[token] = price * (1 - impact)
		}
		p.logger.Debug("Trade simulated",
			zap.String("token", token),
			zap.Float64("amount_usd", amountUSD),
			zap.String("direction", direction))
	}

	out := make(map[string]float64, len(p.basePrices))
	for t, price := range p.basePrices {
		out[t] = price
	}
	return out
}

// walkPrices applies one gaussian step per token. Stablecoins stay
// pinned; majors are clamped to a plausible band. Callers hold p.mu.
func (p *Provider) walkPrices() {
	if time.Since(p.lastWalk) < walkInterval {
		return
	}
	p.lastWalk = time.Now()

	for token, price := range p.basePrices {
		switch token {
		case "USDC", "USDT", "DAI":
			continue
		}

		vol, ok := p.volatility[token]
		if !ok {
			vol = 0.02
		}
		next := price * (1 + p.rng.NormFloat64()*vol)

		switch token {
		case "ETH", "WETH":
			next = clamp(next, 1500, 3000)
		case "WBTC":
			next = clamp(next, 35000, 55000)
		case "LINK":
			next = clamp(next, 10, 20)
		}
		p.basePrices[token] = next
	}
	p.logger.Debug("Prices walked", zap.Float64("eth", p.basePrices["ETH"]))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
