package pulse

import (
	"testing"

	"github.com/rs/zerolog"

	"tapebot-go/internal/config"
	"tapebot-go/internal/feature"
	"tapebot-go/internal/market"
	"tapebot-go/internal/stealth"
)

func engineParams() config.Params {
	p := config.DefaultParams()
	p.SignalCooldownMs = 1000
	p.MinSignalStrength = 2.9
	return p
}

// confirmedShock builds a snapshot that clears every standard confirmation
// gate with a large buy trade.
func confirmedShock() feature.Snapshot {
	return feature.Snapshot{
		Mid:               100,
		LastSide:          market.Buy,
		SizePctRank:       100,
		IsLargeTrade:      true,
		TFI:               10,
		AdaptiveTFIThresh: 5,
		SpreadVelocity:    0.1,
		PriceImpact:       1.0,
		PriceImpactMean:   0.5,
		PriceImpactStdDev: 0.4,
	}
}

func TestShockSignalFires(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	sig := e.Step(1000, confirmedShock(), stealth.Pattern{})
	if sig == nil {
		t.Fatalf("expected shock signal")
	}
	if sig.Kind != market.KindShock || sig.Side != market.Buy {
		t.Fatalf("got %s, want SHOCK_BUY", sig.Reason())
	}
}

func TestCooldownAllowsOnePulse(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	if sig := e.Step(1000, confirmedShock(), stealth.Pattern{}); sig == nil {
		t.Fatalf("first trigger should fire")
	}
	if sig := e.Step(1000.5, confirmedShock(), stealth.Pattern{}); sig != nil {
		t.Fatalf("second trigger inside the cooldown must be suppressed")
	}
	if sig := e.Step(1001.2, confirmedShock(), stealth.Pattern{}); sig == nil {
		t.Fatalf("trigger after the cooldown should fire again")
	}
}

func TestAbsorptionFlipsSide(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := feature.Snapshot{
		Mid:               100,
		LastSide:          market.Buy,
		SizePctRank:       50,
		PriceImpact:       -5,
		PriceImpactMean:   0,
		PriceImpactStdDev: 1,
	}
	sig := e.Step(1000, snap, stealth.Pattern{})
	if sig == nil {
		t.Fatalf("z=-5 should trip the absorption trigger")
	}
	if sig.Kind != market.KindAbsorption {
		t.Fatalf("kind = %v, want absorption", sig.Kind)
	}
	if sig.Side != market.Sell {
		t.Fatalf("absorption must fade the aggressor, got side %v", sig.Side)
	}
	if sig.Strength != 50 {
		t.Fatalf("strength = %v, want |z|*10 = 50", sig.Strength)
	}
}

func TestMaxAbsorptionAtExtremePercentile(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := feature.Snapshot{
		LastSide:          market.Sell,
		SizePctRank:       99.99,
		PriceImpact:       -5,
		PriceImpactStdDev: 1,
	}
	sig := e.Step(1000, snap, stealth.Pattern{})
	if sig == nil || sig.Kind != market.KindMaxAbsorption {
		t.Fatalf("extreme-size absorption should escalate to MAX_ABSORPTION, got %+v", sig)
	}
	if sig.Side != market.Buy {
		t.Fatalf("faded sell aggression should signal buy")
	}
}

func TestAbsorptionSkippedWithoutDispersion(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := feature.Snapshot{
		LastSide:          market.Buy,
		PriceImpact:       -5,
		PriceImpactStdDev: 0, // no evidence yet
	}
	if sig := e.Step(1000, snap, stealth.Pattern{}); sig != nil {
		t.Fatalf("zero dispersion must not produce an absorption signal")
	}
}

func TestConfirmationGates(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*feature.Snapshot)
	}{
		{"tfi below adaptive threshold", func(s *feature.Snapshot) { s.TFI = 4 }},
		{"spread widening", func(s *feature.Snapshot) { s.SpreadVelocity = 0.6 }},
		{"spread narrowing fast", func(s *feature.Snapshot) { s.SpreadVelocity = -0.6 }},
		{"price impact too small", func(s *feature.Snapshot) { s.PriceImpact = 0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine(engineParams(), zerolog.Nop())
			snap := confirmedShock()
			tc.mutate(&snap)
			if sig := e.Step(1000, snap, stealth.Pattern{}); sig != nil {
				t.Fatalf("confirmation failure should suppress the pulse, got %s", sig.Reason())
			}
		})
	}
}

func TestComboOutranksShock(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	pattern := stealth.Pattern{Active: true, Side: market.Buy, Strength: 30, HighestPrice: 101, LowestPrice: 99}
	sig := e.Step(1000, confirmedShock(), pattern)
	if sig == nil || sig.Kind != market.KindCombo {
		t.Fatalf("aligned large trade and streak should be a combo, got %+v", sig)
	}
}

func TestStealthPatternAloneFires(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := confirmedShock()
	snap.IsLargeTrade = false
	snap.SizePctRank = 60
	pattern := stealth.Pattern{Active: true, Side: market.Buy, Strength: 30, HighestPrice: 101, LowestPrice: 99}
	sig := e.Step(1000, snap, pattern)
	if sig == nil || sig.Kind != market.KindForgiving {
		t.Fatalf("expected pure stealth trigger, got %+v", sig)
	}
	// Trigger strength is the streak length for stealth pulses.
	want := 0.5*30 + 0.5*(10/(5/3.75+strengthEpsilon))
	if diff := sig.Strength - want; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("strength = %v, want %v", sig.Strength, want)
	}
}

func TestOpposingPatternIgnored(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := confirmedShock()
	snap.IsLargeTrade = false
	pattern := stealth.Pattern{Active: true, Side: market.Sell, Strength: 30}
	if sig := e.Step(1000, snap, pattern); sig != nil {
		t.Fatalf("streak on the opposite side must not trigger, got %s", sig.Reason())
	}
}

func TestWeakSignalsDiscarded(t *testing.T) {
	p := engineParams()
	p.MinSignalStrength = 1000
	e := NewEngine(p, zerolog.Nop())
	if sig := e.Step(1000, confirmedShock(), stealth.Pattern{}); sig != nil {
		t.Fatalf("strength below the floor must be discarded")
	}
}

func TestExhaustedStreakSuppressed(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := confirmedShock()
	snap.IsLargeTrade = false
	snap.Mid = 99 // below the streak high: no progress
	pattern := stealth.Pattern{Active: true, Side: market.Buy, Strength: 200, HighestPrice: 100, LowestPrice: 90}
	if sig := e.Step(1000, snap, pattern); sig != nil {
		t.Fatalf("exhausted streak must be invalidated, got %s", sig.Reason())
	}
	// Suppression must not consume the cooldown.
	snap.Mid = 100.5
	if sig := e.Step(1000.1, snap, pattern); sig == nil {
		t.Fatalf("progressing streak right after an exhausted one should fire")
	}
}

func TestShortStreakNeverExhausted(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := confirmedShock()
	snap.IsLargeTrade = false
	snap.Mid = 99
	pattern := stealth.Pattern{Active: true, Side: market.Buy, Strength: 100, HighestPrice: 100, LowestPrice: 90}
	if sig := e.Step(1000, snap, pattern); sig == nil {
		t.Fatalf("streak below the exhaustion length must pass")
	}
}

func TestSellSideExhaustion(t *testing.T) {
	e := NewEngine(engineParams(), zerolog.Nop())
	snap := confirmedShock()
	snap.IsLargeTrade = false
	snap.LastSide = market.Sell
	snap.Mid = 95 // below the streak low: still progressing
	pattern := stealth.Pattern{Active: true, Side: market.Sell, Strength: 200, HighestPrice: 110, LowestPrice: 96}
	if sig := e.Step(1000, snap, pattern); sig == nil {
		t.Fatalf("sell streak making new lows should fire")
	}
	e2 := NewEngine(engineParams(), zerolog.Nop())
	snap.Mid = 97 // above the low: stalled
	if sig := e2.Step(1000, snap, pattern); sig != nil {
		t.Fatalf("stalled sell streak must be invalidated")
	}
}
