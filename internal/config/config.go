// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

const (
	DataSourceSample  = "sample"
	DataSourceOnchain = "onchain"
)

type Config struct {
	DataSource   string           `mapstructure:"data_source" json:"data_source"`
	DebugLogging bool             `mapstructure:"debug_logging" json:"debug_logging"`
	Blockchain   BlockchainConfig `mapstructure:"blockchain" json:"blockchain"`
	Hedging      HedgingConfig    `mapstructure:"hedging" json:"hedging"`
	Scheduler    SchedulerConfig  `mapstructure:"scheduler" json:"scheduler"`
	Dashboard    DashboardConfig  `mapstructure:"dashboard" json:"dashboard"`
	Pricefeed    PricefeedConfig  `mapstructure:"pricefeed" json:"pricefeed"`
}

type BlockchainConfig struct {
	ChainID         int64  `mapstructure:"chain_id" json:"chain_id"`
	RPCURL          string `mapstructure:"rpc_url" json:"rpc_url"`
	WalletAddress   string `mapstructure:"wallet_address" json:"wallet_address"`
	PrivateKey      string `mapstructure:"private_key" json:"private_key,omitempty"`
	PositionManager string `mapstructure:"position_manager" json:"position_manager"`
	Factory         string `mapstructure:"factory" json:"factory"`
}

type HedgingConfig struct {
	DeltaThreshold  float64 `mapstructure:"delta_threshold" json:"delta_threshold"`
	RebalanceWindow int     `mapstructure:"rebalance_window" json:"rebalance_window"`
	MaxSlippage     float64 `mapstructure:"max_slippage" json:"max_slippage"`
	HedgeToken      string  `mapstructure:"hedge_token" json:"hedge_token"`
	UrgencyLowMult  float64 `mapstructure:"urgency_low_mult" json:"urgency_low_mult"`
	UrgencyHighMult float64 `mapstructure:"urgency_high_mult" json:"urgency_high_mult"`
}

// SchedulerConfig intervals and the task timeout are in whole seconds,
// matching the YAML surface.
type SchedulerConfig struct {
	PositionInterval int     `mapstructure:"position_interval" json:"position_interval"`
	PriceInterval    int     `mapstructure:"price_interval" json:"price_interval"`
	MinInterval      int     `mapstructure:"min_interval" json:"min_interval"`
	TaskTimeout      int     `mapstructure:"task_timeout" json:"task_timeout"`
	ShrinkFactor     float64 `mapstructure:"shrink_factor" json:"shrink_factor"`
	RelaxFactor      float64 `mapstructure:"relax_factor" json:"relax_factor"`
}

type DashboardConfig struct {
	Host            string `mapstructure:"host" json:"host"`
	Port            int    `mapstructure:"port" json:"port"`
	RefreshInterval int    `mapstructure:"refresh_interval" json:"refresh_interval"`
}

type PricefeedConfig struct {
	Endpoint       string            `mapstructure:"endpoint" json:"endpoint"`
	RequestTimeout int               `mapstructure:"request_timeout" json:"request_timeout"`
	Symbols        map[string]string `mapstructure:"symbols" json:"symbols"`
}

const (
	DefaultChainID           = 8453 // Base mainnet
	DefaultPositionManager   = "0x03a520b3C5F8d0B3A7400d6F8e0E396e0325C3D6"
	DefaultFactory           = "0x33128a8fC17869897dcE68Ed026d694621f6FDfD"
	DefaultDeltaThreshold    = 50.0
	DefaultRebalanceWindow   = 30
	DefaultMaxSlippage       = 0.5
	DefaultHedgeToken        = "ETH"
	DefaultPositionInterval  = 30
	DefaultPriceInterval     = 4
	DefaultMinInterval       = 1
	DefaultTaskTimeout       = 10
	DefaultDashboardHost     = "0.0.0.0"
	DefaultDashboardPort     = 8000
	DefaultRefreshInterval   = 15
	DefaultPricefeedEndpoint = "https://api.coingecko.com/api/v3/simple/price"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"data_source":                 "sample",
		"debug_logging":               false,
		"blockchain.chain_id":         DefaultChainID,
		"blockchain.position_manager": DefaultPositionManager,
		"blockchain.factory":          DefaultFactory,
		"hedging.delta_threshold":     DefaultDeltaThreshold,
		"hedging.rebalance_window":    DefaultRebalanceWindow,
		"hedging.max_slippage":        DefaultMaxSlippage,
		"hedging.hedge_token":         DefaultHedgeToken,
		"hedging.urgency_low_mult":    1.0,
		"hedging.urgency_high_mult":   3.0,
		"scheduler.position_interval": DefaultPositionInterval,
		"scheduler.price_interval":    DefaultPriceInterval,
		"scheduler.min_interval":      DefaultMinInterval,
		"scheduler.task_timeout":      DefaultTaskTimeout,
		"scheduler.shrink_factor":     0.5,
		"scheduler.relax_factor":      1.5,
		"dashboard.host":              DefaultDashboardHost,
		"dashboard.port":              DefaultDashboardPort,
		"dashboard.refresh_interval":  DefaultRefreshInterval,
		"pricefeed.endpoint":          DefaultPricefeedEndpoint,
		"pricefeed.request_timeout":   8,
		"pricefeed.symbols":           defaultSymbols(),
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

// defaultSymbols maps the supported token symbols to their CoinGecko ids.
func defaultSymbols() map[string]string {
	return map[string]string{
		"ETH":  "ethereum",
		"WETH": "weth",
		"USDC": "usd-coin",
		"USDT": "tether",
		"DAI":  "dai",
		"WBTC": "wrapped-bitcoin",
		"LINK": "chainlink",
		"UNI":  "uniswap",
		"AAVE": "aave",
	}
}

func validateConfig(cfg *Config) error {
	if cfg.DataSource != DataSourceSample && cfg.DataSource != DataSourceOnchain {
		return errors.New("data_source must be \"sample\" or \"onchain\"")
	}
	if cfg.DataSource == DataSourceOnchain {
		if cfg.Blockchain.RPCURL == "" {
			return errors.New("missing blockchain.rpc_url for onchain mode")
		}
		if err := validateURLWithCache(cfg.Blockchain.RPCURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
		if !isHexAddress(cfg.Blockchain.WalletAddress) {
			return errors.New("invalid blockchain.wallet_address")
		}
		if !isHexAddress(cfg.Blockchain.PositionManager) {
			return errors.New("invalid blockchain.position_manager")
		}
		if !isHexAddress(cfg.Blockchain.Factory) {
			return errors.New("invalid blockchain.factory")
		}
	}
	if cfg.Hedging.HedgeToken == "" {
		return errors.New("missing hedging.hedge_token")
	}
	if err := validateNumericParams(cfg); err != nil {
		return err
	}
	if err := validateURLWithCache(cfg.Pricefeed.Endpoint, "http"); err != nil {
		return errors.New("invalid pricefeed endpoint")
	}
	return nil
}

func validateNumericParams(cfg *Config) error {
	if cfg.Hedging.DeltaThreshold <= 0 {
		return errors.New("invalid hedging.delta_threshold")
	}
	if cfg.Hedging.RebalanceWindow <= 0 {
		return errors.New("invalid hedging.rebalance_window")
	}
	if cfg.Hedging.MaxSlippage < 0 {
		return errors.New("invalid hedging.max_slippage")
	}
	if cfg.Hedging.UrgencyLowMult <= 0 || cfg.Hedging.UrgencyHighMult <= cfg.Hedging.UrgencyLowMult {
		return errors.New("invalid hedging urgency multiples")
	}
	if cfg.Scheduler.PositionInterval <= 0 || cfg.Scheduler.PriceInterval <= 0 {
		return errors.New("invalid scheduler intervals")
	}
	if cfg.Scheduler.MinInterval <= 0 || cfg.Scheduler.TaskTimeout <= 0 {
		return errors.New("invalid scheduler min_interval or task_timeout")
	}
	if cfg.Scheduler.ShrinkFactor <= 0 || cfg.Scheduler.ShrinkFactor >= 1 {
		return errors.New("invalid scheduler.shrink_factor")
	}
	if cfg.Scheduler.RelaxFactor <= 1 {
		return errors.New("invalid scheduler.relax_factor")
	}
	if cfg.Dashboard.Port <= 0 || cfg.Dashboard.Port > 65535 {
		return errors.New("invalid dashboard.port")
	}
	if cfg.Dashboard.RefreshInterval <= 0 {
		return errors.New("invalid dashboard.refresh_interval")
	}
	if cfg.Pricefeed.RequestTimeout <= 0 {
		return errors.New("invalid pricefeed.request_timeout")
	}
	return nil
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("HEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if rpcURL := v.GetString("BLOCKCHAIN_RPC_URL"); rpcURL != "" {
		cfg.Blockchain.RPCURL = rpcURL
	}
	if addr := v.GetString("BLOCKCHAIN_WALLET_ADDRESS"); addr != "" {
		cfg.Blockchain.WalletAddress = addr
	}
	if key := v.GetString("BLOCKCHAIN_PRIVATE_KEY"); key != "" {
		cfg.Blockchain.PrivateKey = key
	}
	if src := v.GetString("DATA_SOURCE"); src != "" {
		cfg.DataSource = src
	}
	return nil
}

// Hash returns a short fingerprint of the effective configuration. It is
// logged at startup so two operators can compare what their processes
// actually loaded.
func (c *Config) Hash() string {
	raw, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:16]
}

// Redacted returns the configuration for the /api/config endpoint with
// the private key stripped.
func (c *Config) Redacted() Config {
	out := *c
	out.Blockchain.PrivateKey = ""
	out.Pricefeed.Symbols = make(map[string]string, len(c.Pricefeed.Symbols))
	for sym, id := range c.Pricefeed.Symbols {
		out.Pricefeed.Symbols[sym] = id
	}
	return out
}
