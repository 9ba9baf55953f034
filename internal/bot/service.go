// internal/bot/service.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/config"
	"github.com/rovshanmuradov/lp-hedger/internal/delta"
	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
	"github.com/rovshanmuradov/lp-hedger/internal/metrics"
	"github.com/rovshanmuradov/lp-hedger/internal/onchain"
	"github.com/rovshanmuradov/lp-hedger/internal/pricefeed"
	"github.com/rovshanmuradov/lp-hedger/internal/sample"
	"github.com/rovshanmuradov/lp-hedger/internal/scheduler"
	"github.com/rovshanmuradov/lp-hedger/internal/state"
)

// PositionSource yields the wallet's LP positions, priced with whatever
// table the source last received through UpdatePrices.
type PositionSource interface {
	GetPositions(ctx context.Context) ([]hedge.Position, error)
	UpdatePrices(prices map[string]float64)
}

// PriceSource yields the latest token prices in USD.
type PriceSource interface {
	GetPrices(ctx context.Context) (map[string]float64, error)
}

// feedSource adapts the price feed client to the PriceSource surface the
// refresh task consumes.
type feedSource struct {
	client *pricefeed.Client
}

func (f feedSource) GetPrices(ctx context.Context) (map[string]float64, error) {
	return f.client.FetchPrices(ctx)
}

// Service wires the data sources, the scheduler, the decision engine and
// the state store into one hedging bot.
type Service struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *state.Store
	scheduler *scheduler.Scheduler
	engine    *delta.Engine

	positions PositionSource
	prices    PriceSource
	sample    *sample.Provider // nil in onchain mode
	reader    *onchain.Reader  // nil in sample mode

	priceInterval time.Duration

	ctx         context.Context
	cancel      context.CancelFunc
	lifecycleMu sync.Mutex // serializes Start/Stop transitions
	mu          sync.RWMutex
	createdAt   time.Time
	startedAt   time.Time
}

// ServiceConfig configuration for Service
type ServiceConfig struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewService builds a stopped bot for the configured data source. In
// sample mode the cache is primed immediately so the dashboard has data
// before the first scheduled refresh; onchain mode stays cold until the
// tasks run.
func NewService(parentCtx context.Context, cfg *ServiceConfig) (*Service, error) {
	ctx, cancel := context.WithCancel(parentCtx)

	logger := cfg.Logger.Named("bot")
	logger.Info("🚀 Initializing hedger service",
		zap.String("mode", cfg.Config.DataSource),
		zap.String("config_hash", cfg.Config.Hash()))

	store := state.NewStore(logger)
	engine := delta.New(delta.Config{
		HedgeToken:      cfg.Config.Hedging.HedgeToken,
		DeltaThreshold:  cfg.Config.Hedging.DeltaThreshold,
		UrgencyLowMult:  cfg.Config.Hedging.UrgencyLowMult,
		UrgencyHighMult: cfg.Config.Hedging.UrgencyHighMult,
	})
	sched := scheduler.New(scheduler.Config{
		MinInterval:  time.Duration(cfg.Config.Scheduler.MinInterval) * time.Second,
		TaskTimeout:  time.Duration(cfg.Config.Scheduler.TaskTimeout) * time.Second,
		ShrinkFactor: cfg.Config.Scheduler.ShrinkFactor,
		RelaxFactor:  cfg.Config.Scheduler.RelaxFactor,
		Logger:       logger,
	})

	s := &Service{
		cfg:           cfg.Config,
		logger:        logger,
		store:         store,
		scheduler:     sched,
		engine:        engine,
		priceInterval: time.Duration(cfg.Config.Scheduler.PriceInterval) * time.Second,
		ctx:           ctx,
		cancel:        cancel,
		createdAt:     time.Now(),
	}

	switch cfg.Config.DataSource {
	case config.DataSourceSample:
		provider := sample.NewProvider(logger)
		s.sample = provider
		s.positions = provider
		s.prices = provider
		s.primeSampleCache()

	case config.DataSourceOnchain:
		reader, err := onchain.NewReader(onchain.Config{
			RPCURL:          cfg.Config.Blockchain.RPCURL,
			WalletAddress:   cfg.Config.Blockchain.WalletAddress,
			PositionManager: cfg.Config.Blockchain.PositionManager,
			Factory:         cfg.Config.Blockchain.Factory,
			Logger:          logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to initialize onchain reader: %w", err)
		}
		s.reader = reader
		s.positions = reader
		s.prices = feedSource{client: pricefeed.NewClient(pricefeed.Config{
			Endpoint:       cfg.Config.Pricefeed.Endpoint,
			RequestTimeout: time.Duration(cfg.Config.Pricefeed.RequestTimeout) * time.Second,
			Symbols:        cfg.Config.Pricefeed.Symbols,
			Logger:         logger,
		})}
		logger.Info("🌐 Onchain mode",
			zap.String("rpc", s.maskRPCURL(cfg.Config.Blockchain.RPCURL)),
			zap.String("wallet", cfg.Config.Blockchain.WalletAddress))

	default:
		cancel()
		return nil, fmt.Errorf("unknown data source %q", cfg.Config.DataSource)
	}

	if err := s.registerTasks(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register tasks: %w", err)
	}

	logger.Info("✅ Hedger service initialized",
		zap.Strings("tasks", sched.TaskNames()))
	return s, nil
}

// primeSampleCache publishes the simulated universe before the scheduler
// ever ticks.
func (s *Service) primeSampleCache() {
	prices, err := s.sample.GetPrices(s.ctx)
	if err == nil {
		s.store.PublishPrices(prices)
	}
	positions, err := s.sample.GetPositions(s.ctx)
	if err == nil {
		s.store.PublishPositions(positions)
		metrics.SetPositionsCount(len(positions))
		metrics.SetTotalLPValue(hedge.TotalValue(positions))
	}
	s.logger.Info("📦 Sample universe primed",
		zap.Int("positions", len(positions)),
		zap.Int("prices", len(prices)))
}

// Start launches the scheduler loops. It reports whether this call did
// the starting; false means the bot was already running.
func (s *Service) Start() (bool, error) {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.scheduler.State() == scheduler.StateRunning {
		return false, nil
	}
	if _, err := s.scheduler.Start(); err != nil {
		return false, err
	}

	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()

	metrics.SetBotRunning(true)
	s.logger.Info("🚀 Hedger started",
		zap.String("mode", s.cfg.DataSource),
		zap.String("hedge_token", s.cfg.Hedging.HedgeToken),
		zap.Float64("delta_threshold", s.cfg.Hedging.DeltaThreshold))
	return true, nil
}

// Stop halts the scheduler loops, draining in-flight work. The cached
// snapshots stay in place so the API keeps serving the last known state.
// It reports whether this call did the stopping.
func (s *Service) Stop() bool {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.scheduler.State() != scheduler.StateRunning {
		return false
	}
	s.scheduler.Stop()
	metrics.SetBotRunning(false)
	s.logger.Info("🛑 Hedger stopped")
	return true
}

// Running reports whether the scheduler loops are live.
func (s *Service) Running() bool {
	return s.scheduler.State() == scheduler.StateRunning
}

// Mode returns the configured data source.
func (s *Service) Mode() string {
	return s.cfg.DataSource
}

// Uptime is the time since the service was built, not since Start; a
// stop/start cycle through the API does not reset it.
func (s *Service) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.createdAt)
}

// GetConfig returns the effective configuration.
func (s *Service) GetConfig() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// GetStore returns the state store.
func (s *Service) GetStore() *state.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// GetLogger returns the service logger.
func (s *Service) GetLogger() *zap.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

// TaskStatus returns the scheduler bookkeeping for every task.
func (s *Service) TaskStatus() []scheduler.TaskSnapshot {
	return s.scheduler.Status()
}

// SimulateTrade applies a hypothetical trade to the sample universe and
// publishes the moved prices immediately. It refuses in onchain mode,
// where prices are real.
func (s *Service) SimulateTrade(token string, amountUSD float64, direction string) (map[string]float64, error) {
	if s.sample == nil {
		return nil, errors.New("trade simulation is only available with the sample data source")
	}
	if direction != string(hedge.ActionBuy) && direction != string(hedge.ActionSell) {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}
	if amountUSD <= 0 {
		return nil, errors.New("trade amount must be positive")
	}

	prices := s.sample.SimulateTrade(token, amountUSD, direction)
	s.store.PublishPrices(prices)
	return prices, nil
}

// Shutdown stops the scheduler and releases the data sources.
func (s *Service) Shutdown(ctx context.Context) error {
	s.logger.Info("🛑 Shutting down hedger service")

	s.Stop()
	if s.reader != nil {
		s.reader.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.logger.Info("✅ Hedger service shutdown completed")
	return nil
}

// Close implements io.Closer for the shutdown handler.
func (s *Service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// maskRPCURL masks sensitive parts of an RPC URL for logging.
func (s *Service) maskRPCURL(url string) string {
	if len(url) > 20 {
		return url[:10] + "***" + url[len(url)-7:]
	}
	return "***"
}
