// internal/hedge/delta.go
package hedge

import "time"

// HedgeAction is the direction of a hedge trade, or "hold" when the
// exposure sits inside the configured band.
type HedgeAction string

const (
	ActionBuy  HedgeAction = "buy"
	ActionSell HedgeAction = "sell"
	ActionHold HedgeAction = "hold"
)

// Urgency grades how far beyond the threshold the exposure has drifted.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// DeltaSnapshot is one complete delta calculation over the position
// cache. Snapshots are immutable once published; readers always see
// either the previous snapshot or this one, never a mix.
type DeltaSnapshot struct {
	TotalLPValue   float64     `json:"total_lp_value"`
	Token0Exposure float64     `json:"token0_exposure"`
	Token1Exposure float64     `json:"token1_exposure"`
	NetDelta       float64     `json:"net_delta"`
	HedgeNeeded    bool        `json:"hedge_needed"`
	HedgeAmount    float64     `json:"hedge_amount"`
	HedgeToken     string      `json:"hedge_token"`
	HedgeDirection HedgeAction `json:"hedge_direction"`
	Confidence     float64     `json:"confidence"`
	ComputedAt     time.Time   `json:"computed_at"`
}

// HedgeRecommendation is the actionable companion of a DeltaSnapshot.
// It is advisory only; nothing in this process executes trades.
type HedgeRecommendation struct {
	ID        string      `json:"id"`
	Action    HedgeAction `json:"action"`
	Amount    float64     `json:"amount"`
	Token     string      `json:"token"`
	Urgency   Urgency     `json:"urgency"`
	Reason    string      `json:"reason"`
	CreatedAt time.Time   `json:"created_at"`
}
