// internal/delta/engine.go
package delta

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

// ErrDataUnavailable is returned while the position cache has never been
// successfully refreshed. Callers treat it as "no recommendation yet",
// not as a fault: nothing is published and the previous snapshot (if
// any) stays in place.
var ErrDataUnavailable = errors.New("delta: position data unavailable")

const (
	DefaultHedgeToken      = "ETH"
	DefaultDeltaThreshold  = 50.0
	DefaultUrgencyLowMult  = 1.0
	DefaultUrgencyHighMult = 3.0
)

// Config fixes the decision parameters. The urgency multiples grade how
// far beyond the threshold the exposure has drifted: low while
// |netDelta| <= threshold*(1+LowMult), medium up to (1+HighMult), high
// past that.
type Config struct {
	HedgeToken      string  // symbol whose exposure defines the net delta
	DeltaThreshold  float64 // USD band around zero exposure
	UrgencyLowMult  float64
	UrgencyHighMult float64
}

// Input is one complete view of the cache at computation time. PriceAge
// is the age of the newest successful price refresh; Refreshed reports
// whether positions have ever been published at all, which is a
// different thing from an empty-but-current position set.
type Input struct {
	Positions     []hedge.Position
	Refreshed     bool
	PriceAge      time.Duration
	PriceInterval time.Duration // base cadence of the price refresh task
}

// Engine derives delta snapshots and hedge recommendations from LP
// positions. It is pure: no clocks besides timestamping the outputs, no
// I/O, no internal state, so identical inputs always yield identical
// numbers.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.HedgeToken == "" {
		cfg.HedgeToken = DefaultHedgeToken
	}
	if cfg.DeltaThreshold <= 0 {
		cfg.DeltaThreshold = DefaultDeltaThreshold
	}
	if cfg.UrgencyLowMult <= 0 {
		cfg.UrgencyLowMult = DefaultUrgencyLowMult
	}
	if cfg.UrgencyHighMult <= cfg.UrgencyLowMult {
		cfg.UrgencyHighMult = DefaultUrgencyHighMult
	}
	return &Engine{cfg: cfg}
}

// Compute runs one delta calculation over the given view.
//
// Exposure per token counts balances and uncollected fees at the latest
// price. The net delta is the exposure of the configured hedge token;
// hedging triggers once its magnitude leaves the threshold band, selling
// when long and buying when short.
func (e *Engine) Compute(in Input) (hedge.DeltaSnapshot, hedge.HedgeRecommendation, error) {
	if !in.Refreshed {
		return hedge.DeltaSnapshot{}, hedge.HedgeRecommendation{}, ErrDataUnavailable
	}

	now := time.Now()
	snap := hedge.DeltaSnapshot{
		HedgeToken:     e.cfg.HedgeToken,
		HedgeDirection: hedge.ActionBuy,
		ComputedAt:     now,
	}

	if len(in.Positions) == 0 {
		// A refreshed wallet with no LP positions: nothing to hedge and
		// nothing to be confident about.
		return snap, e.holdRecommendation(now), nil
	}

	var netDelta float64
	for i := range in.Positions {
		p := &in.Positions[i]
		snap.TotalLPValue += p.TotalValueUSD
		snap.Token0Exposure += p.Token0.ValueUSD + p.UncollectedFees0*p.Token0.PriceUSD
		snap.Token1Exposure += p.Token1.ValueUSD + p.UncollectedFees1*p.Token1.PriceUSD
		netDelta += p.ExposureUSD(e.cfg.HedgeToken)
	}

	snap.NetDelta = netDelta
	snap.HedgeNeeded = math.Abs(netDelta) > e.cfg.DeltaThreshold
	if netDelta > 0 {
		snap.HedgeDirection = hedge.ActionSell
	}
	if snap.HedgeNeeded {
		snap.HedgeAmount = math.Abs(netDelta)
	}
	snap.Confidence = e.confidence(in)

	if !snap.HedgeNeeded {
		return snap, e.holdRecommendation(now), nil
	}

	rec := hedge.HedgeRecommendation{
		ID:        uuid.NewString(),
		Action:    snap.HedgeDirection,
		Amount:    snap.HedgeAmount,
		Token:     e.cfg.HedgeToken,
		Urgency:   e.urgency(math.Abs(netDelta)),
		Reason:    fmt.Sprintf("Delta %.2f exceeds threshold %.2f", netDelta, e.cfg.DeltaThreshold),
		CreatedAt: now,
	}
	return snap, rec, nil
}

func (e *Engine) holdRecommendation(now time.Time) hedge.HedgeRecommendation {
	return hedge.HedgeRecommendation{
		ID:        uuid.NewString(),
		Action:    hedge.ActionHold,
		Token:     e.cfg.HedgeToken,
		Urgency:   hedge.UrgencyLow,
		Reason:    "Delta within threshold",
		CreatedAt: now,
	}
}

// confidence starts at 1 and pays two penalties: half the fraction of
// positions whose pool tick is unknown, plus the price staleness ratio
// (age over the price task's base cadence, capped at 1). The result is
// clamped to [0, 1].
func (e *Engine) confidence(in Input) float64 {
	unknown := 0
	for i := range in.Positions {
		if in.Positions[i].CurrentTick == nil {
			unknown++
		}
	}
	conf := 1.0 - 0.5*float64(unknown)/float64(len(in.Positions))

	if in.PriceInterval > 0 {
		stale := in.PriceAge.Seconds() / in.PriceInterval.Seconds()
		if stale > 1 {
			stale = 1
		}
		if stale > 0 {
			conf -= stale
		}
	}

	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func (e *Engine) urgency(magnitude float64) hedge.Urgency {
	switch {
	case magnitude <= e.cfg.DeltaThreshold*(1+e.cfg.UrgencyLowMult):
		return hedge.UrgencyLow
	case magnitude <= e.cfg.DeltaThreshold*(1+e.cfg.UrgencyHighMult):
		return hedge.UrgencyMedium
	default:
		return hedge.UrgencyHigh
	}
}
