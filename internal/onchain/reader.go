// internal/onchain/reader.go

// Package onchain reads live Uniswap V3 LP positions from an EVM chain.
//
// One refresh enumerates the wallet's position NFTs through the position
// manager, reads each NFT's static data, resolves its pool through the
// factory and samples the pool's current tick. All eth_calls share a
// rate limiter and a bounded retry. Position principal is derived
// locally from pool liquidity, so the bot never depends on an indexer.
package onchain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

const (
	// Public Base RPC endpoints start shedding load around ten
	// requests per second.
	callsPerSecond = 8
	callBurst      = 8

	maxCallTries = 3

	// fanOutLimit caps concurrent per-NFT reads so one refresh cannot
	// monopolize the rate limiter budget.
	fanOutLimit = 4
)

type Config struct {
	RPCURL          string
	WalletAddress   string
	PositionManager string
	Factory         string
	Logger          *zap.Logger
}

// Reader is a read-only client for the position manager, factory and
// pool contracts. It is safe for concurrent use.
type Reader struct {
	client          *ethclient.Client
	positionManager common.Address
	factory         common.Address
	wallet          common.Address
	limiter         *rate.Limiter
	logger          *zap.Logger

	metaCache sync.Map // common.Address -> tokenMetadata
	poolCache sync.Map // poolKey -> common.Address

	mu     sync.RWMutex
	prices map[string]float64
}

type poolKey struct {
	token0 common.Address
	token1 common.Address
	fee    int
}

func NewReader(cfg Config) (*Reader, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC node: %w", err)
	}
	return &Reader{
		client:          client,
		positionManager: common.HexToAddress(cfg.PositionManager),
		factory:         common.HexToAddress(cfg.Factory),
		wallet:          common.HexToAddress(cfg.WalletAddress),
		limiter:         rate.NewLimiter(rate.Limit(callsPerSecond), callBurst),
		logger:          cfg.Logger.Named("onchain"),
		prices:          make(map[string]float64),
	}, nil
}

// Close releases the underlying RPC connection.
func (r *Reader) Close() {
	r.client.Close()
}

// UpdatePrices merges the latest feed prices into the table used to
// value positions. The price task feeds it after every successful fetch.
func (r *Reader) UpdatePrices(prices map[string]float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for symbol, price := range prices {
		r.prices[symbol] = price
	}
}

func (r *Reader) priceTable() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.prices))
	for symbol, price := range r.prices {
		out[symbol] = price
	}
	return out
}

// GetPositions reads every LP position the wallet currently holds. A
// single position failing to load fails the whole refresh, so a caller
// never acts on a partial view of the portfolio.
func (r *Reader) GetPositions(ctx context.Context) ([]hedge.Position, error) {
	ids, err := r.walletTokenIDs(ctx)
	if err != nil {
		return nil, hedge.NewRetrievalError("onchain", "enumerate_positions", err)
	}
	if len(ids) == 0 {
		return []hedge.Position{}, nil
	}

	prices := r.priceTable()
	positions := make([]hedge.Position, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutLimit)
	for i, id := range ids {
		g.Go(func() error {
			pos, err := r.readPosition(gctx, id)
			if err != nil {
				return err
			}
			pos.Reprice(prices)
			positions[i] = pos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, hedge.NewRetrievalError("onchain", "read_positions", err)
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].NFTID < positions[j].NFTID
	})
	return positions, nil
}

// walletTokenIDs enumerates the wallet's position NFTs through the
// manager's ERC-721 enumerable surface.
func (r *Reader) walletTokenIDs(ctx context.Context) ([]uint64, error) {
	callData, err := positionManagerABI.Pack("balanceOf", r.wallet)
	if err != nil {
		return nil, err
	}
	result, err := r.call(ctx, r.positionManager, callData)
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	vals, err := positionManagerABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("balanceOf decode: %w", err)
	}
	count := vals[0].(*big.Int).Uint64()

	ids := make([]uint64, 0, count)
	for i := uint64(0); i < count; i++ {
		callData, err := positionManagerABI.Pack("tokenOfOwnerByIndex", r.wallet, new(big.Int).SetUint64(i))
		if err != nil {
			return nil, err
		}
		result, err := r.call(ctx, r.positionManager, callData)
		if err != nil {
			return nil, fmt.Errorf("tokenOfOwnerByIndex(%d): %w", i, err)
		}
		vals, err := positionManagerABI.Unpack("tokenOfOwnerByIndex", result)
		if err != nil {
			return nil, fmt.Errorf("tokenOfOwnerByIndex(%d) decode: %w", i, err)
		}
		ids = append(ids, vals[0].(*big.Int).Uint64())
	}
	return ids, nil
}

func (r *Reader) readPosition(ctx context.Context, tokenID uint64) (hedge.Position, error) {
	callData, err := positionManagerABI.Pack("positions", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return hedge.Position{}, err
	}
	result, err := r.call(ctx, r.positionManager, callData)
	if err != nil {
		return hedge.Position{}, fmt.Errorf("positions(%d): %w", tokenID, err)
	}
	vals, err := positionManagerABI.Unpack("positions", result)
	if err != nil {
		return hedge.Position{}, fmt.Errorf("positions(%d) decode: %w", tokenID, err)
	}

	token0Addr := vals[2].(common.Address)
	token1Addr := vals[3].(common.Address)
	feeTier := int(vals[4].(*big.Int).Int64())
	tickLower := int(vals[5].(*big.Int).Int64())
	tickUpper := int(vals[6].(*big.Int).Int64())
	liquidity := vals[7].(*big.Int)
	tokensOwed0 := vals[10].(*big.Int)
	tokensOwed1 := vals[11].(*big.Int)

	meta0 := r.metadataFor(ctx, token0Addr)
	meta1 := r.metadataFor(ctx, token1Addr)

	pos := hedge.Position{
		NFTID: tokenID,
		Token0: hedge.TokenAmount{
			Symbol:   meta0.Symbol,
			Address:  token0Addr.Hex(),
			Decimals: meta0.Decimals,
		},
		Token1: hedge.TokenAmount{
			Symbol:   meta1.Symbol,
			Address:  token1Addr.Hex(),
			Decimals: meta1.Decimals,
		},
		FeeTier:          feeTier,
		TickLower:        tickLower,
		TickUpper:        tickUpper,
		Liquidity:        liquidity,
		UncollectedFees0: scaleAmount(tokensOwed0, meta0.Decimals),
		UncollectedFees1: scaleAmount(tokensOwed1, meta1.Decimals),
	}

	pool, state, err := r.poolState(ctx, token0Addr, token1Addr, feeTier)
	if pool != (common.Address{}) {
		pos.PoolAddress = pool.Hex()
	}
	if err != nil {
		// Principal cannot be valued without the pool price. The
		// unknown tick keeps the position out of range and lowers
		// the hedge confidence.
		r.logger.Warn("Pool state unavailable",
			zap.Uint64("nft_id", tokenID),
			zap.Error(err))
		return pos, nil
	}
	tick := state.tick
	pos.CurrentTick = &tick
	pos.SqrtPriceX96 = state.sqrtPriceX96

	amount0, amount1 := amountsFromLiquidity(liquidity, sqrtPriceX96ToFloat(state.sqrtPriceX96), tick, tickLower, tickUpper)
	pos.Token0.Balance = amount0 / math.Pow(10, float64(meta0.Decimals))
	pos.Token1.Balance = amount1 / math.Pow(10, float64(meta1.Decimals))
	return pos, nil
}

type poolSlot0 struct {
	sqrtPriceX96 *big.Int
	tick         int
}

// poolState resolves the pair's pool through the factory and samples its
// slot0.
func (r *Reader) poolState(ctx context.Context, token0, token1 common.Address, feeTier int) (common.Address, poolSlot0, error) {
	pool, err := r.poolFor(ctx, token0, token1, feeTier)
	if err != nil {
		return common.Address{}, poolSlot0{}, err
	}

	callData, err := poolABI.Pack("slot0")
	if err != nil {
		return pool, poolSlot0{}, err
	}
	result, err := r.call(ctx, pool, callData)
	if err != nil {
		return pool, poolSlot0{}, fmt.Errorf("slot0: %w", err)
	}
	vals, err := poolABI.Unpack("slot0", result)
	if err != nil {
		return pool, poolSlot0{}, fmt.Errorf("slot0 decode: %w", err)
	}
	return pool, poolSlot0{
		sqrtPriceX96: vals[0].(*big.Int),
		tick:         int(vals[1].(*big.Int).Int64()),
	}, nil
}

func (r *Reader) poolFor(ctx context.Context, token0, token1 common.Address, feeTier int) (common.Address, error) {
	key := poolKey{token0: token0, token1: token1, fee: feeTier}
	if cached, ok := r.poolCache.Load(key); ok {
		return cached.(common.Address), nil
	}

	callData, err := factoryABI.Pack("getPool", token0, token1, big.NewInt(int64(feeTier)))
	if err != nil {
		return common.Address{}, err
	}
	result, err := r.call(ctx, r.factory, callData)
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool: %w", err)
	}
	vals, err := factoryABI.Unpack("getPool", result)
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool decode: %w", err)
	}
	pool := vals[0].(common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("no pool for fee tier %d", feeTier)
	}
	r.poolCache.Store(key, pool)
	return pool, nil
}

// call performs one rate-limited eth_call with bounded retries. Reverts
// are not retried.
func (r *Reader) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	operation := func() ([]byte, error) {
		result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			if isRevert(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	notify := func(err error, wait time.Duration) {
		r.logger.Debug("Retrying eth_call",
			zap.String("to", to.Hex()),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(maxCallTries),
		backoff.WithNotify(notify))
}

// isRevert reports whether an RPC error is a contract revert, which no
// retry will fix.
func isRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}

// scaleAmount converts a raw integer token amount to a decimal balance.
func scaleAmount(raw *big.Int, decimals int) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(raw).Float64()
	return f / math.Pow(10, float64(decimals))
}
