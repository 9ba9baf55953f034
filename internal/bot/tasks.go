// internal/bot/tasks.go
package bot

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/delta"
	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
	"github.com/rovshanmuradov/lp-hedger/internal/metrics"
	"github.com/rovshanmuradov/lp-hedger/internal/scheduler"
)

const (
	taskPositionUpdate = "position_update"
	// The price refresh keeps its historical name so dashboards and
	// metric series stay continuous across data sources.
	taskPriceRefresh = "onchain_refresh"
	taskDeltaCheck   = "delta_check"
)

// registerTasks wires the three periodic loops into the scheduler. The
// delta check is adaptive: it tightens while a hedge recommendation is
// outstanding and relaxes back once the book is balanced.
func (s *Service) registerTasks() error {
	if err := s.scheduler.Register(taskPositionUpdate,
		time.Duration(s.cfg.Scheduler.PositionInterval)*time.Second,
		s.instrument(taskPositionUpdate, s.refreshPositions)); err != nil {
		return err
	}
	if err := s.scheduler.Register(taskPriceRefresh,
		s.priceInterval,
		s.instrument(taskPriceRefresh, s.refreshPrices)); err != nil {
		return err
	}
	if err := s.scheduler.RegisterAdaptive(taskDeltaCheck,
		time.Duration(s.cfg.Hedging.RebalanceWindow)*time.Second,
		s.instrument(taskDeltaCheck, s.computeDelta),
		s.store.HedgeOutstanding); err != nil {
		return err
	}
	return nil
}

// instrument wraps a task work func with the Prometheus bookkeeping:
// running gauge, duration histogram, run counter by result and the
// cumulative error gauge.
func (s *Service) instrument(name string, work func(context.Context) error) scheduler.Work {
	var errCount atomic.Uint64
	return func(ctx context.Context) error {
		metrics.SetTaskRunning(name, true)
		start := time.Now()
		err := work(ctx)
		metrics.ObserveTaskDuration(name, time.Since(start).Seconds())
		metrics.SetTaskRunning(name, false)

		switch {
		case err == nil:
			metrics.IncTaskRun(name, "success")
		case errors.Is(err, context.DeadlineExceeded):
			metrics.SetTaskErrors(name, errCount.Add(1))
			metrics.IncTaskRun(name, "timeout")
		default:
			metrics.SetTaskErrors(name, errCount.Add(1))
			metrics.IncTaskRun(name, "error")
		}
		return err
	}
}

// refreshPositions pulls the wallet's LP positions from the configured
// source and publishes them to the store.
func (s *Service) refreshPositions(ctx context.Context) error {
	positions, err := s.positions.GetPositions(ctx)
	if err != nil {
		return err
	}

	s.store.PublishPositions(positions)
	metrics.SetPositionsCount(len(positions))
	metrics.SetTotalLPValue(hedge.TotalValue(positions))

	s.logger.Debug("Positions refreshed",
		zap.Int("count", len(positions)),
		zap.Float64("total_value_usd", hedge.TotalValue(positions)))
	return nil
}

// refreshPrices fetches the latest price table, repoints the position
// source at it and publishes it for the delta engine.
func (s *Service) refreshPrices(ctx context.Context) error {
	prices, err := s.prices.GetPrices(ctx)
	if err != nil {
		return err
	}

	s.positions.UpdatePrices(prices)
	s.store.PublishPrices(prices)

	s.logger.Debug("Prices refreshed", zap.Int("symbols", len(prices)))
	return nil
}

// computeDelta runs the decision engine over the cached portfolio and
// publishes the snapshot plus recommendation. A cache that has never
// been filled is not an error: the task simply waits for the position
// loop to deliver.
func (s *Service) computeDelta(ctx context.Context) error {
	positions, refreshedAt, refreshed := s.store.Positions()
	_, pricesAt := s.store.Prices()

	priceAge := time.Since(pricesAt)
	if pricesAt.IsZero() {
		// Prices never fetched count as fully stale.
		priceAge = s.priceInterval
	}

	snap, rec, err := s.engine.Compute(delta.Input{
		Positions:     positions,
		Refreshed:     refreshed,
		PriceAge:      priceAge,
		PriceInterval: s.priceInterval,
	})
	if err != nil {
		if errors.Is(err, delta.ErrDataUnavailable) {
			s.logger.Debug("delta skipped, no position data yet")
			return nil
		}
		return err
	}

	s.store.PublishDecision(snap, rec)
	metrics.SetDeltaSnapshot(snap.NetDelta, snap.HedgeAmount, snap.Confidence, snap.HedgeNeeded)

	if snap.HedgeNeeded {
		s.logger.Info("⚠️ Hedge recommended",
			zap.Float64("net_delta", snap.NetDelta),
			zap.String("action", string(rec.Action)),
			zap.Float64("amount", rec.Amount),
			zap.String("urgency", string(rec.Urgency)),
			zap.Duration("position_age", time.Since(refreshedAt)))
	} else {
		s.logger.Debug("Delta within threshold",
			zap.Float64("net_delta", snap.NetDelta),
			zap.Float64("confidence", snap.Confidence))
	}
	return nil
}
