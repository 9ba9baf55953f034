package delta

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

func intPtr(v int) *int { return &v }

// ethUsdcPosition builds a derived position with the given ETH balance
// at $2500 against 5000 USDC, no uncollected fees, pool in range.
func ethUsdcPosition(ethBalance float64) hedge.Position {
	pos := hedge.Position{
		NFTID:       19542083,
		Token0:      hedge.TokenAmount{Symbol: "ETH", Balance: ethBalance, PriceUSD: 2500},
		Token1:      hedge.TokenAmount{Symbol: "USDC", Balance: 5000, PriceUSD: 1},
		TickLower:   -887220,
		TickUpper:   887220,
		CurrentTick: intPtr(0),
	}
	pos.Reprice(nil)
	return pos
}

func freshInput(positions ...hedge.Position) Input {
	return Input{
		Positions:     positions,
		Refreshed:     true,
		PriceAge:      0,
		PriceInterval: 4 * time.Second,
	}
}

func TestComputeLongExposureTriggersSell(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})

	snap, rec, err := engine.Compute(freshInput(ethUsdcPosition(2.0)))
	require.NoError(t, err)

	assert.Equal(t, 10000.0, snap.TotalLPValue)
	assert.Equal(t, 5000.0, snap.Token0Exposure)
	assert.Equal(t, 5000.0, snap.Token1Exposure)
	assert.Equal(t, 5000.0, snap.NetDelta)
	assert.True(t, snap.HedgeNeeded)
	assert.Equal(t, 5000.0, snap.HedgeAmount)
	assert.Equal(t, "ETH", snap.HedgeToken)
	assert.Equal(t, hedge.ActionSell, snap.HedgeDirection)
	assert.Equal(t, 1.0, snap.Confidence)

	assert.Equal(t, hedge.ActionSell, rec.Action)
	assert.Equal(t, 5000.0, rec.Amount)
	assert.Equal(t, "ETH", rec.Token)
	assert.Equal(t, hedge.UrgencyHigh, rec.Urgency)
	assert.Equal(t, "Delta 5000.00 exceeds threshold 50.00", rec.Reason)
	assert.NotEmpty(t, rec.ID)
}

func TestComputeZeroExposureHolds(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})

	// All value sits in the stable side: nothing to hedge.
	snap, rec, err := engine.Compute(freshInput(ethUsdcPosition(0)))
	require.NoError(t, err)

	assert.Equal(t, 5000.0, snap.TotalLPValue)
	assert.Zero(t, snap.NetDelta)
	assert.False(t, snap.HedgeNeeded)
	assert.Zero(t, snap.HedgeAmount)

	assert.Equal(t, hedge.ActionHold, rec.Action)
	assert.Zero(t, rec.Amount)
	assert.Equal(t, hedge.UrgencyLow, rec.Urgency)
	assert.Equal(t, "Delta within threshold", rec.Reason)
}

func TestComputeShortExposureTriggersBuy(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})

	pos := ethUsdcPosition(2.0)
	pos.Token0.Balance = -2.0 // borrowed-side accounting
	pos.Reprice(nil)

	snap, rec, err := engine.Compute(freshInput(pos))
	require.NoError(t, err)

	assert.Equal(t, -5000.0, snap.NetDelta)
	assert.True(t, snap.HedgeNeeded)
	assert.Equal(t, 5000.0, snap.HedgeAmount)
	assert.Equal(t, hedge.ActionBuy, snap.HedgeDirection)
	assert.Equal(t, hedge.ActionBuy, rec.Action)
}

func TestComputeAtThresholdHolds(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 5000})

	// |netDelta| == threshold must not trigger: the band is exclusive.
	snap, rec, err := engine.Compute(freshInput(ethUsdcPosition(2.0)))
	require.NoError(t, err)

	assert.Equal(t, 5000.0, snap.NetDelta)
	assert.False(t, snap.HedgeNeeded)
	assert.Equal(t, hedge.ActionHold, rec.Action)
}

func TestComputeNeverRefreshedFails(t *testing.T) {
	engine := New(Config{})

	_, _, err := engine.Compute(Input{Refreshed: false})
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

func TestComputeRefreshedButEmpty(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})

	snap, rec, err := engine.Compute(freshInput())
	require.NoError(t, err)

	assert.Zero(t, snap.TotalLPValue)
	assert.Zero(t, snap.NetDelta)
	assert.False(t, snap.HedgeNeeded)
	assert.Zero(t, snap.Confidence)
	assert.Equal(t, "ETH", snap.HedgeToken)
	assert.Equal(t, hedge.ActionHold, rec.Action)
}

func TestConfidencePenalties(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})

	known := ethUsdcPosition(1.0)
	unknown := ethUsdcPosition(1.0)
	unknown.CurrentTick = nil
	unknown.Reprice(nil)

	tests := []struct {
		name  string
		input Input
		want  float64
	}{
		{
			name:  "fresh prices, all ticks known",
			input: Input{Positions: []hedge.Position{known, known}, Refreshed: true, PriceInterval: 4 * time.Second},
			want:  1.0,
		},
		{
			name:  "half the ticks unknown",
			input: Input{Positions: []hedge.Position{known, unknown}, Refreshed: true, PriceInterval: 4 * time.Second},
			want:  0.75,
		},
		{
			name: "prices half stale",
			input: Input{
				Positions: []hedge.Position{known}, Refreshed: true,
				PriceAge: 2 * time.Second, PriceInterval: 4 * time.Second,
			},
			want: 0.5,
		},
		{
			name: "staleness penalty caps at one",
			input: Input{
				Positions: []hedge.Position{known}, Refreshed: true,
				PriceAge: time.Hour, PriceInterval: 4 * time.Second,
			},
			want: 0.0,
		},
		{
			name: "combined penalties clamp at zero",
			input: Input{
				Positions: []hedge.Position{unknown, unknown}, Refreshed: true,
				PriceAge: time.Hour, PriceInterval: 4 * time.Second,
			},
			want: 0.0,
		},
		{
			name:  "no price cadence configured skips staleness",
			input: Input{Positions: []hedge.Position{known}, Refreshed: true, PriceAge: time.Hour},
			want:  1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, _, err := engine.Compute(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, snap.Confidence, 1e-9)
		})
	}
}

func TestUrgencyGradedByThresholdMultiples(t *testing.T) {
	engine := New(Config{
		HedgeToken:      "ETH",
		DeltaThreshold:  50,
		UrgencyLowMult:  1.0,
		UrgencyHighMult: 3.0,
	})

	// Low covers the band up to 50*(1+1)=100, medium up to 50*(1+3)=200,
	// high everything beyond. Boundaries are inclusive on the calm side.
	tests := []struct {
		name       string
		ethBalance float64 // at $2500 each
		wantDelta  float64
		want       hedge.Urgency
	}{
		{"just past the threshold", 0.03, 75, hedge.UrgencyLow},
		{"at the low boundary", 0.04, 100, hedge.UrgencyLow},
		{"between the boundaries", 0.06, 150, hedge.UrgencyMedium},
		{"at the high boundary", 0.08, 200, hedge.UrgencyMedium},
		{"far beyond the threshold", 0.12, 300, hedge.UrgencyHigh},
		{"entire sample book", 2.0, 5000, hedge.UrgencyHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := hedge.Position{
				Token0:      hedge.TokenAmount{Symbol: "ETH", Balance: tt.ethBalance, PriceUSD: 2500},
				Token1:      hedge.TokenAmount{Symbol: "USDC", Balance: 1, PriceUSD: 1},
				TickLower:   -10,
				TickUpper:   10,
				CurrentTick: intPtr(0),
			}
			pos.Reprice(nil)

			snap, rec, err := engine.Compute(freshInput(pos))
			require.NoError(t, err)
			assert.InDelta(t, tt.wantDelta, snap.NetDelta, 1e-9)
			assert.Equal(t, hedge.ActionSell, rec.Action)
			assert.Equal(t, tt.want, rec.Urgency)
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	engine := New(Config{HedgeToken: "ETH", DeltaThreshold: 50})
	in := freshInput(ethUsdcPosition(2.0), ethUsdcPosition(0.5))

	first, _, err := engine.Compute(in)
	require.NoError(t, err)
	second, _, err := engine.Compute(in)
	require.NoError(t, err)

	// Timestamps differ; every number must not.
	first.ComputedAt = second.ComputedAt
	assert.Equal(t, first, second)
}

func TestNewAppliesDefaults(t *testing.T) {
	engine := New(Config{})

	assert.Equal(t, DefaultHedgeToken, engine.cfg.HedgeToken)
	assert.Equal(t, DefaultDeltaThreshold, engine.cfg.DeltaThreshold)
	assert.Equal(t, DefaultUrgencyLowMult, engine.cfg.UrgencyLowMult)
	assert.Equal(t, DefaultUrgencyHighMult, engine.cfg.UrgencyHighMult)
}
