// internal/onchain/metadata.go
package onchain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// tokenMetadata holds the immutable ERC-20 facts a position needs.
type tokenMetadata struct {
	Symbol   string
	Decimals int
}

// metadataFor resolves symbol and decimals for a token contract, caching
// results for the process lifetime. Tokens that refuse either call are
// reported as UNKNOWN with 18 decimals so a single broken token cannot
// block a position refresh.
func (r *Reader) metadataFor(ctx context.Context, token common.Address) tokenMetadata {
	if value, ok := r.metaCache.Load(token); ok {
		return value.(tokenMetadata)
	}

	meta := tokenMetadata{Symbol: "UNKNOWN", Decimals: 18}

	if symbol, err := r.tokenSymbol(ctx, token); err != nil {
		r.logger.Debug("Token symbol lookup failed",
			zap.String("token", token.Hex()),
			zap.Error(err))
	} else if symbol != "" {
		meta.Symbol = symbol
	}

	if decimals, err := r.tokenDecimals(ctx, token); err != nil {
		r.logger.Debug("Token decimals lookup failed",
			zap.String("token", token.Hex()),
			zap.Error(err))
	} else {
		meta.Decimals = decimals
	}

	r.metaCache.Store(token, meta)
	return meta
}

func (r *Reader) tokenSymbol(ctx context.Context, token common.Address) (string, error) {
	callData, err := erc20ABI.Pack("symbol")
	if err != nil {
		return "", err
	}
	result, err := r.call(ctx, token, callData)
	if err != nil {
		return "", err
	}
	vals, err := erc20ABI.Unpack("symbol", result)
	if err != nil || len(vals) == 0 {
		return "", err
	}
	return vals[0].(string), nil
}

func (r *Reader) tokenDecimals(ctx context.Context, token common.Address) (int, error) {
	callData, err := erc20ABI.Pack("decimals")
	if err != nil {
		return 0, err
	}
	result, err := r.call(ctx, token, callData)
	if err != nil {
		return 0, err
	}
	vals, err := erc20ABI.Unpack("decimals", result)
	if err != nil || len(vals) == 0 {
		return 0, err
	}
	return int(vals[0].(uint8)), nil
}
