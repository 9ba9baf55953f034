// internal/onchain/abi.go
package onchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract ABIs, trimmed to the read calls the bot issues.
var (
	positionManagerABI abi.ABI
	erc20ABI           abi.ABI
	factoryABI         abi.ABI
	poolABI            abi.ABI
)

func init() {
	var err error

	positionManagerABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "positions",
			"type": "function",
			"inputs": [{"name": "tokenId", "type": "uint256"}],
			"outputs": [
				{"name": "nonce", "type": "uint96"},
				{"name": "operator", "type": "address"},
				{"name": "token0", "type": "address"},
				{"name": "token1", "type": "address"},
				{"name": "fee", "type": "uint24"},
				{"name": "tickLower", "type": "int24"},
				{"name": "tickUpper", "type": "int24"},
				{"name": "liquidity", "type": "uint128"},
				{"name": "feeGrowthInside0LastX128", "type": "uint256"},
				{"name": "feeGrowthInside1LastX128", "type": "uint256"},
				{"name": "tokensOwed0", "type": "uint128"},
				{"name": "tokensOwed1", "type": "uint128"}
			]
		},
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "owner", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "tokenOfOwnerByIndex",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "index", "type": "uint256"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("position manager abi parse: " + err.Error())
	}

	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "symbol",
			"type": "function",
			"inputs": [],
			"outputs": [{"name": "", "type": "string"}]
		},
		{
			"name": "decimals",
			"type": "function",
			"inputs": [],
			"outputs": [{"name": "", "type": "uint8"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}

	factoryABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "getPool",
			"type": "function",
			"inputs": [
				{"name": "tokenA", "type": "address"},
				{"name": "tokenB", "type": "address"},
				{"name": "fee", "type": "uint24"}
			],
			"outputs": [{"name": "", "type": "address"}]
		}
	]`))
	if err != nil {
		panic("factory abi parse: " + err.Error())
	}

	poolABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "slot0",
			"type": "function",
			"inputs": [],
			"outputs": [
				{"name": "sqrtPriceX96", "type": "uint160"},
				{"name": "tick", "type": "int24"},
				{"name": "observationIndex", "type": "uint16"},
				{"name": "observationCardinality", "type": "uint16"},
				{"name": "observationCardinalityNext", "type": "uint16"},
				{"name": "feeProtocol", "type": "uint8"},
				{"name": "unlocked", "type": "bool"}
			]
		}
	]`))
	if err != nil {
		panic("pool abi parse: " + err.Error())
	}
}
