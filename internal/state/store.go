// internal/state/store.go
package state

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

// Store is the process-wide cache between the refresh tasks and every
// reader: the delta task, the HTTP boundary and the dashboard. Writers
// publish by swapping whole values under the lock; readers get copies.
// A reader therefore always sees one coherent generation, never a blend
// of two refreshes.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	positions   []hedge.Position
	positionsAt time.Time // zero until the first successful refresh
	prices      map[string]float64
	pricesAt    time.Time

	snapshot       *hedge.DeltaSnapshot
	recommendation *hedge.HedgeRecommendation

	// Statistics (accessed atomically)
	reads  uint64
	writes uint64
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger: logger.Named("state"),
		prices: make(map[string]float64),
	}
}

// PublishPositions replaces the position set wholesale. An empty slice
// is a valid publication: it marks the cache as refreshed, which is how
// "no LP positions" is told apart from "never fetched anything".
func (s *Store) PublishPositions(positions []hedge.Position) {
	next := make([]hedge.Position, len(positions))
	copy(next, positions)

	s.mu.Lock()
	s.positions = next
	s.positionsAt = time.Now()
	s.mu.Unlock()
	atomic.AddUint64(&s.writes, 1)

	s.logger.Debug("positions published", zap.Int("count", len(next)))
}

// Positions returns a copy of the cached set, its publication time and
// whether any refresh has ever succeeded.
func (s *Store) Positions() ([]hedge.Position, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atomic.AddUint64(&s.reads, 1)
	out := make([]hedge.Position, len(s.positions))
	copy(out, s.positions)
	return out, s.positionsAt, !s.positionsAt.IsZero()
}

// PublishPrices swaps in a fresh price map.
func (s *Store) PublishPrices(prices map[string]float64) {
	next := make(map[string]float64, len(prices))
	for sym, px := range prices {
		next[sym] = px
	}

	s.mu.Lock()
	s.prices = next
	s.pricesAt = time.Now()
	s.mu.Unlock()
	atomic.AddUint64(&s.writes, 1)
}

// Prices returns a copy of the cached prices and their publication time
// (zero while no refresh has succeeded yet).
func (s *Store) Prices() (map[string]float64, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atomic.AddUint64(&s.reads, 1)
	out := make(map[string]float64, len(s.prices))
	for sym, px := range s.prices {
		out[sym] = px
	}
	return out, s.pricesAt
}

// PublishDecision stores a snapshot/recommendation pair as one unit, so
// no reader can ever pair a new snapshot with an old recommendation.
func (s *Store) PublishDecision(snap hedge.DeltaSnapshot, rec hedge.HedgeRecommendation) {
	s.mu.Lock()
	s.snapshot = &snap
	s.recommendation = &rec
	s.mu.Unlock()
	atomic.AddUint64(&s.writes, 1)

	s.logger.Debug("decision published",
		zap.Float64("net_delta", snap.NetDelta),
		zap.Bool("hedge_needed", snap.HedgeNeeded),
		zap.String("action", string(rec.Action)))
}

// Decision returns copies of the latest pair; ok is false until the
// first publication.
func (s *Store) Decision() (hedge.DeltaSnapshot, hedge.HedgeRecommendation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	atomic.AddUint64(&s.reads, 1)
	if s.snapshot == nil {
		return hedge.DeltaSnapshot{}, hedge.HedgeRecommendation{}, false
	}
	return *s.snapshot, *s.recommendation, true
}

// HedgeOutstanding reports whether the latest snapshot still calls for a
// hedge. It is the urgency probe the adaptive scheduler polls after
// every delta invocation, so it must stay cheap and non-blocking.
func (s *Store) HedgeOutstanding() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot != nil && s.snapshot.HedgeNeeded
}

// Stats returns the cumulative read/write counters.
func (s *Store) Stats() (reads, writes uint64) {
	return atomic.LoadUint64(&s.reads), atomic.LoadUint64(&s.writes)
}
