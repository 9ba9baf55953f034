// internal/bot/service_test.go
package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-hedger/internal/config"
)

func sampleConfig() *config.Config {
	return &config.Config{
		DataSource: config.DataSourceSample,
		Hedging: config.HedgingConfig{
			DeltaThreshold:  50,
			RebalanceWindow: 30,
			MaxSlippage:     0.5,
			HedgeToken:      "ETH",
			UrgencyLowMult:  1,
			UrgencyHighMult: 3,
		},
		Scheduler: config.SchedulerConfig{
			PositionInterval: 30,
			PriceInterval:    4,
			MinInterval:      1,
			TaskTimeout:      10,
			ShrinkFactor:     0.5,
			RelaxFactor:      1.5,
		},
		Dashboard: config.DashboardConfig{Host: "127.0.0.1", Port: 0, RefreshInterval: 15},
		Pricefeed: config.PricefeedConfig{
			Endpoint:       "https://api.coingecko.com/api/v3/simple/price",
			RequestTimeout: 8,
			Symbols:        map[string]string{"ETH": "ethereum", "USDC": "usd-coin"},
		},
	}
}

func onchainConfig() *config.Config {
	cfg := sampleConfig()
	cfg.DataSource = config.DataSourceOnchain
	cfg.Blockchain = config.BlockchainConfig{
		ChainID:         8453,
		RPCURL:          "http://127.0.0.1:0",
		WalletAddress:   "0x1111111111111111111111111111111111111111",
		PositionManager: config.DefaultPositionManager,
		Factory:         config.DefaultFactory,
	}
	return cfg
}

func newSampleService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), &ServiceConfig{
		Config: sampleConfig(),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewServicePrimesSampleCache(t *testing.T) {
	svc := newSampleService(t)

	positions, _, refreshed := svc.GetStore().Positions()
	require.True(t, refreshed, "sample mode publishes positions at construction")
	require.Len(t, positions, 3)

	prices, fetchedAt := svc.GetStore().Prices()
	require.False(t, fetchedAt.IsZero())
	assert.InDelta(t, 2000.0, prices["ETH"], 1e-9)

	assert.Equal(t, []string{"delta_check", "onchain_refresh", "position_update"},
		svc.scheduler.TaskNames())
	assert.False(t, svc.Running())
	assert.Equal(t, config.DataSourceSample, svc.Mode())
}

func TestStartStopLifecycle(t *testing.T) {
	svc := newSampleService(t)

	started, err := svc.Start()
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, svc.Running())

	started, err = svc.Start()
	require.NoError(t, err)
	assert.False(t, started, "second start is a no-op")

	require.True(t, svc.Stop())
	assert.False(t, svc.Running())
	assert.False(t, svc.Stop(), "second stop is a no-op")

	// The cache survives a stop so the API keeps serving data.
	_, _, refreshed := svc.GetStore().Positions()
	assert.True(t, refreshed)

	started, err = svc.Start()
	require.NoError(t, err)
	assert.True(t, started, "a stopped bot can be started again")
}

func TestTaskStatusRegistrationOrder(t *testing.T) {
	svc := newSampleService(t)

	snaps := svc.TaskStatus()
	require.Len(t, snaps, 3)
	assert.Equal(t, taskPositionUpdate, snaps[0].Name)
	assert.Equal(t, taskPriceRefresh, snaps[1].Name)
	assert.Equal(t, taskDeltaCheck, snaps[2].Name)
	assert.InDelta(t, 30.0, snaps[0].Interval, 1e-9)
	assert.InDelta(t, 4.0, snaps[1].Interval, 1e-9)
	assert.InDelta(t, 30.0, snaps[2].BaseInterval, 1e-9)
}

func TestSimulateTradeMovesPrices(t *testing.T) {
	svc := newSampleService(t)

	// 0.1% impact per $1000 of size.
	prices, err := svc.SimulateTrade("ETH", 1000, "buy")
	require.NoError(t, err)
	assert.InDelta(t, 2002.0, prices["ETH"], 1e-6)

	stored, _ := svc.GetStore().Prices()
	assert.InDelta(t, 2002.0, stored["ETH"], 1e-6, "moved prices are published immediately")
}

func TestSimulateTradeValidation(t *testing.T) {
	svc := newSampleService(t)

	_, err := svc.SimulateTrade("ETH", 1000, "short")
	require.ErrorContains(t, err, "invalid direction")

	_, err = svc.SimulateTrade("ETH", -5, "buy")
	require.ErrorContains(t, err, "positive")

	_, err = svc.SimulateTrade("ETH", 0, "sell")
	require.ErrorContains(t, err, "positive")
}

func TestNewServiceRejectsUnknownDataSource(t *testing.T) {
	cfg := sampleConfig()
	cfg.DataSource = "csv"

	_, err := NewService(context.Background(), &ServiceConfig{
		Config: cfg,
		Logger: zaptest.NewLogger(t),
	})
	require.ErrorContains(t, err, "unknown data source")
}

func TestOnchainModeStartsCold(t *testing.T) {
	// Dialing an HTTP endpoint is lazy, so construction never touches
	// the network.
	svc, err := NewService(context.Background(), &ServiceConfig{
		Config: onchainConfig(),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	_, _, refreshed := svc.GetStore().Positions()
	assert.False(t, refreshed, "onchain mode must not fabricate data at construction")
	assert.Equal(t, config.DataSourceOnchain, svc.Mode())

	_, err = svc.SimulateTrade("ETH", 1000, "buy")
	require.ErrorContains(t, err, "sample data source")
}

func TestUptimeSurvivesStopStart(t *testing.T) {
	svc := newSampleService(t)

	_, err := svc.Start()
	require.NoError(t, err)
	svc.Stop()

	first := svc.Uptime()
	_, err = svc.Start()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, svc.Uptime(), first, "uptime is measured from construction")
}
