package stealth

import (
	"testing"

	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
)

func streakParams() config.Params {
	p := config.DefaultParams()
	p.ForgivingStreakLength = 5
	p.ForgivingStreakMaxLives = 2
	p.ForgivingMaxCounterRatio = 0.30
	return p
}

func trade(price, size float64, side market.Side) market.Tick {
	return market.Tick{LastPrice: price, LastSize: size, LastSide: side, Bid: price, Ask: price, PreTradeMid: price}
}

func buildStreak(d *Detector, n int, size float64) {
	for i := 0; i < n; i++ {
		d.Update(trade(100+float64(i), size, market.Buy))
	}
}

func TestSmallCounterTradeIsForgiven(t *testing.T) {
	d := NewDetector(streakParams())
	buildStreak(d, 10, 2.0) // avg size 2.0
	d.Update(trade(100, 0.5, market.Sell))

	streak := d.Streak()
	if streak.Length != 10 {
		t.Fatalf("forgiven counter-trade must not change length, got %d", streak.Length)
	}
	if streak.LivesUsed != 1 {
		t.Fatalf("expected one life consumed, got %d", streak.LivesUsed)
	}
	if streak.Side != market.Buy {
		t.Fatalf("streak side must survive forgiveness")
	}
}

func TestLargeCounterTradeResetsStreak(t *testing.T) {
	d := NewDetector(streakParams())
	buildStreak(d, 10, 2.0)
	d.Update(trade(99, 1.0, market.Sell)) // 1.0 >= 2.0*0.30

	streak := d.Streak()
	if streak.Side != market.Sell || streak.Length != 1 {
		t.Fatalf("expected hard reset to sell streak of 1, got side=%v length=%d", streak.Side, streak.Length)
	}
	if streak.LivesUsed != 0 {
		t.Fatalf("fresh streak must start with zero lives used")
	}
}

func TestLivesBudgetExhaustion(t *testing.T) {
	d := NewDetector(streakParams())
	buildStreak(d, 10, 2.0)
	d.Update(trade(100, 0.1, market.Sell))
	d.Update(trade(100, 0.1, market.Sell))
	if got := d.Streak().LivesUsed; got != 2 {
		t.Fatalf("expected both lives consumed, got %d", got)
	}
	// Third small counter-trade exceeds the budget.
	d.Update(trade(100, 0.1, market.Sell))
	streak := d.Streak()
	if streak.Side != market.Sell || streak.Length != 1 {
		t.Fatalf("exhausted lives must reset, got side=%v length=%d", streak.Side, streak.Length)
	}
}

func TestZeroVolumeStreakNeverForgives(t *testing.T) {
	d := NewDetector(streakParams())
	// First trade ever: no streak to forgive against.
	d.Update(trade(100, 1.0, market.Sell))
	streak := d.Streak()
	if streak.Side != market.Sell || streak.Length != 1 {
		t.Fatalf("first trade should start a streak, got side=%v length=%d", streak.Side, streak.Length)
	}
}

func TestPatternFiresAtThreshold(t *testing.T) {
	d := NewDetector(streakParams())
	var pattern Pattern
	for i := 0; i < 4; i++ {
		pattern = d.Update(trade(100+float64(i), 1, market.Buy))
	}
	if pattern.Active {
		t.Fatalf("pattern must stay inactive below the length threshold")
	}
	pattern = d.Update(trade(104, 1, market.Buy))
	if !pattern.Active || pattern.Side != market.Buy {
		t.Fatalf("expected active buy pattern at threshold, got %+v", pattern)
	}
	if pattern.Strength != 5 {
		t.Fatalf("pattern strength should equal streak length, got %v", pattern.Strength)
	}
}

func TestStreakTracksPriceExtremes(t *testing.T) {
	d := NewDetector(streakParams())
	prices := []float64{100, 104, 98, 102, 101}
	var pattern Pattern
	for _, px := range prices {
		pattern = d.Update(trade(px, 1, market.Buy))
	}
	if pattern.HighestPrice != 104 || pattern.LowestPrice != 98 {
		t.Fatalf("extremes high=%v low=%v, want 104/98", pattern.HighestPrice, pattern.LowestPrice)
	}
}
