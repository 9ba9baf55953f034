// ======================================
// File: internal/config/config_test.go
// ======================================
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "data_source: sample\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DataSourceSample, cfg.DataSource)
	assert.False(t, cfg.DebugLogging)
	assert.Equal(t, int64(DefaultChainID), cfg.Blockchain.ChainID)
	assert.Equal(t, DefaultPositionManager, cfg.Blockchain.PositionManager)
	assert.Equal(t, DefaultFactory, cfg.Blockchain.Factory)
	assert.Equal(t, DefaultDeltaThreshold, cfg.Hedging.DeltaThreshold)
	assert.Equal(t, DefaultRebalanceWindow, cfg.Hedging.RebalanceWindow)
	assert.Equal(t, DefaultHedgeToken, cfg.Hedging.HedgeToken)
	assert.Equal(t, 1.0, cfg.Hedging.UrgencyLowMult)
	assert.Equal(t, 3.0, cfg.Hedging.UrgencyHighMult)
	assert.Equal(t, DefaultPositionInterval, cfg.Scheduler.PositionInterval)
	assert.Equal(t, DefaultPriceInterval, cfg.Scheduler.PriceInterval)
	assert.Equal(t, DefaultMinInterval, cfg.Scheduler.MinInterval)
	assert.Equal(t, DefaultTaskTimeout, cfg.Scheduler.TaskTimeout)
	assert.Equal(t, 0.5, cfg.Scheduler.ShrinkFactor)
	assert.Equal(t, 1.5, cfg.Scheduler.RelaxFactor)
	assert.Equal(t, DefaultDashboardHost, cfg.Dashboard.Host)
	assert.Equal(t, DefaultDashboardPort, cfg.Dashboard.Port)
	assert.Equal(t, DefaultRefreshInterval, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, DefaultPricefeedEndpoint, cfg.Pricefeed.Endpoint)
	assert.Equal(t, 8, cfg.Pricefeed.RequestTimeout)
	assert.Equal(t, "ethereum", cfg.Pricefeed.Symbols["ETH"])
	assert.Equal(t, "usd-coin", cfg.Pricefeed.Symbols["USDC"])
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
data_source: sample
debug_logging: true
hedging:
  delta_threshold: 125.0
  hedge_token: WETH
scheduler:
  position_interval: 60
  shrink_factor: 0.25
dashboard:
  port: 9100
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging)
	assert.Equal(t, 125.0, cfg.Hedging.DeltaThreshold)
	assert.Equal(t, "WETH", cfg.Hedging.HedgeToken)
	assert.Equal(t, 60, cfg.Scheduler.PositionInterval)
	assert.Equal(t, 0.25, cfg.Scheduler.ShrinkFactor)
	assert.Equal(t, 9100, cfg.Dashboard.Port)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultRebalanceWindow, cfg.Hedging.RebalanceWindow)
	assert.Equal(t, DefaultPriceInterval, cfg.Scheduler.PriceInterval)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("HEDGER_BLOCKCHAIN_RPC_URL", "https://mainnet.base.org")
	t.Setenv("HEDGER_BLOCKCHAIN_PRIVATE_KEY", "0xdeadbeef")

	cfg, err := LoadConfig(writeConfig(t, "data_source: sample\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://mainnet.base.org", cfg.Blockchain.RPCURL)
	assert.Equal(t, "0xdeadbeef", cfg.Blockchain.PrivateKey)
}

func validSampleConfig() *Config {
	return &Config{
		DataSource: DataSourceSample,
		Blockchain: BlockchainConfig{
			ChainID:         DefaultChainID,
			PositionManager: DefaultPositionManager,
			Factory:         DefaultFactory,
		},
		Hedging: HedgingConfig{
			DeltaThreshold:  DefaultDeltaThreshold,
			RebalanceWindow: DefaultRebalanceWindow,
			MaxSlippage:     DefaultMaxSlippage,
			HedgeToken:      DefaultHedgeToken,
			UrgencyLowMult:  1.0,
			UrgencyHighMult: 3.0,
		},
		Scheduler: SchedulerConfig{
			PositionInterval: DefaultPositionInterval,
			PriceInterval:    DefaultPriceInterval,
			MinInterval:      DefaultMinInterval,
			TaskTimeout:      DefaultTaskTimeout,
			ShrinkFactor:     0.5,
			RelaxFactor:      1.5,
		},
		Dashboard: DashboardConfig{
			Host:            DefaultDashboardHost,
			Port:            DefaultDashboardPort,
			RefreshInterval: DefaultRefreshInterval,
		},
		Pricefeed: PricefeedConfig{
			Endpoint:       DefaultPricefeedEndpoint,
			RequestTimeout: 8,
			Symbols:        defaultSymbols(),
		},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid sample config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "unknown data source",
			mutate:  func(c *Config) { c.DataSource = "replay" },
			wantErr: "data_source",
		},
		{
			name:    "onchain without rpc url",
			mutate:  func(c *Config) { c.DataSource = DataSourceOnchain },
			wantErr: "rpc_url",
		},
		{
			name: "onchain with bad wallet",
			mutate: func(c *Config) {
				c.DataSource = DataSourceOnchain
				c.Blockchain.RPCURL = "https://mainnet.base.org"
				c.Blockchain.WalletAddress = "not-an-address"
			},
			wantErr: "wallet_address",
		},
		{
			name: "onchain with ws rpc url",
			mutate: func(c *Config) {
				c.DataSource = DataSourceOnchain
				c.Blockchain.RPCURL = "wss://mainnet.base.org"
				c.Blockchain.WalletAddress = "0x1111111111111111111111111111111111111111"
			},
			wantErr: "RPC URL",
		},
		{
			name:    "empty hedge token",
			mutate:  func(c *Config) { c.Hedging.HedgeToken = "" },
			wantErr: "hedge_token",
		},
		{
			name:    "zero delta threshold",
			mutate:  func(c *Config) { c.Hedging.DeltaThreshold = 0 },
			wantErr: "delta_threshold",
		},
		{
			name: "inverted urgency multiples",
			mutate: func(c *Config) {
				c.Hedging.UrgencyLowMult = 3.0
				c.Hedging.UrgencyHighMult = 1.0
			},
			wantErr: "urgency",
		},
		{
			name:    "shrink factor above one",
			mutate:  func(c *Config) { c.Scheduler.ShrinkFactor = 1.5 },
			wantErr: "shrink_factor",
		},
		{
			name:    "relax factor below one",
			mutate:  func(c *Config) { c.Scheduler.RelaxFactor = 0.9 },
			wantErr: "relax_factor",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Dashboard.Port = 70000 },
			wantErr: "dashboard.port",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSampleConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsHexAddress(t *testing.T) {
	assert.True(t, isHexAddress("0x03a520b3C5F8d0B3A7400d6F8e0E396e0325C3D6"))
	assert.False(t, isHexAddress("03a520b3C5F8d0B3A7400d6F8e0E396e0325C3D6"))
	assert.False(t, isHexAddress("0x03a5"))
	assert.False(t, isHexAddress("0xZZa520b3C5F8d0B3A7400d6F8e0E396e0325C3D6"))
}

func TestConfigHash(t *testing.T) {
	a := validSampleConfig()
	b := validSampleConfig()

	assert.Len(t, a.Hash(), 16)
	assert.Equal(t, a.Hash(), b.Hash())

	b.Hedging.DeltaThreshold = 99.0
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestRedactedStripsPrivateKey(t *testing.T) {
	cfg := validSampleConfig()
	cfg.Blockchain.PrivateKey = "0xsecret"

	red := cfg.Redacted()
	assert.Empty(t, red.Blockchain.PrivateKey)
	assert.Equal(t, "0xsecret", cfg.Blockchain.PrivateKey)

	red.Pricefeed.Symbols["ETH"] = "mutated"
	assert.Equal(t, "ethereum", cfg.Pricefeed.Symbols["ETH"])
}
