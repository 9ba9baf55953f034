package state

import (
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/lp-hedger/internal/hedge"
)

func TestPositionsRefreshedFlag(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))

	positions, _, refreshed := s.Positions()
	if refreshed {
		t.Fatal("fresh store must report not refreshed")
	}
	if len(positions) != 0 {
		t.Fatalf("fresh store returned %d positions", len(positions))
	}

	// Publishing an empty set still counts as a refresh: an empty wallet
	// is valid data, not missing data.
	s.PublishPositions(nil)
	_, at, refreshed := s.Positions()
	if !refreshed {
		t.Fatal("empty publication must mark the cache refreshed")
	}
	if at.IsZero() {
		t.Fatal("publication time not stamped")
	}
}

func TestPositionsCopiedBothWays(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))

	in := []hedge.Position{{NFTID: 19542083, TotalValueUSD: 10000}}
	s.PublishPositions(in)

	// Mutating the caller's slice after publishing must not leak in.
	in[0].TotalValueUSD = -1

	out, _, _ := s.Positions()
	if out[0].TotalValueUSD != 10000 {
		t.Fatalf("published position mutated through caller slice: %v", out[0].TotalValueUSD)
	}

	// Mutating the returned copy must not leak back.
	out[0].TotalValueUSD = -2
	again, _, _ := s.Positions()
	if again[0].TotalValueUSD != 10000 {
		t.Fatalf("cache mutated through reader copy: %v", again[0].TotalValueUSD)
	}
}

func TestPricesCopiedBothWays(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))

	if _, at := s.Prices(); !at.IsZero() {
		t.Fatal("price timestamp set before any publish")
	}

	in := map[string]float64{"ETH": 2000, "USDC": 1}
	s.PublishPrices(in)
	in["ETH"] = 0

	out, at := s.Prices()
	if out["ETH"] != 2000 {
		t.Fatalf("published price mutated through caller map: %v", out["ETH"])
	}
	if at.IsZero() {
		t.Fatal("price publication time not stamped")
	}

	out["ETH"] = -5
	again, _ := s.Prices()
	if again["ETH"] != 2000 {
		t.Fatalf("cache mutated through reader copy: %v", again["ETH"])
	}
}

func TestDecisionPublishedAsOneUnit(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))

	if _, _, ok := s.Decision(); ok {
		t.Fatal("decision available before any publish")
	}
	if s.HedgeOutstanding() {
		t.Fatal("hedge outstanding before any publish")
	}

	snap := hedge.DeltaSnapshot{NetDelta: 5000, HedgeNeeded: true, HedgeToken: "ETH"}
	rec := hedge.HedgeRecommendation{Action: hedge.ActionSell, Amount: 5000, Token: "ETH"}
	s.PublishDecision(snap, rec)

	gotSnap, gotRec, ok := s.Decision()
	if !ok {
		t.Fatal("decision missing after publish")
	}
	if gotSnap.NetDelta != 5000 || gotRec.Action != hedge.ActionSell {
		t.Fatalf("decision pair mismatch: %+v / %+v", gotSnap, gotRec)
	}
	if !s.HedgeOutstanding() {
		t.Fatal("hedge outstanding flag not derived from latest snapshot")
	}

	s.PublishDecision(hedge.DeltaSnapshot{NetDelta: 10}, hedge.HedgeRecommendation{Action: hedge.ActionHold})
	if s.HedgeOutstanding() {
		t.Fatal("hedge outstanding after the band was re-entered")
	}
}

func TestStatsCount(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))

	s.PublishPositions(nil)
	s.PublishPrices(nil)
	s.PublishDecision(hedge.DeltaSnapshot{}, hedge.HedgeRecommendation{})
	s.Positions()
	s.Prices()
	s.Decision()

	reads, writes := s.Stats()
	if reads != 3 || writes != 3 {
		t.Fatalf("stats = (%d reads, %d writes), want (3, 3)", reads, writes)
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore(zaptest.NewLogger(t))
	positions := []hedge.Position{{NFTID: 1}, {NFTID: 2}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.PublishPositions(positions)
				s.PublishPrices(map[string]float64{"ETH": float64(j)})
				s.PublishDecision(hedge.DeltaSnapshot{NetDelta: float64(j)}, hedge.HedgeRecommendation{})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				got, _, _ := s.Positions()
				if len(got) != 0 && len(got) != 2 {
					t.Errorf("torn position read: %d entries", len(got))
				}
				s.Prices()
				s.Decision()
				s.HedgeOutstanding()
			}
		}()
	}
	wg.Wait()
}
