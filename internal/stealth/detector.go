// Package stealth tracks same-direction trade streaks that tolerate a
// bounded number of small counter-trades.
package stealth

import (
	"math"

	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
)

// Streak is the state of the current run of same-direction trades.
type Streak struct {
	Side         market.Side
	Length       int
	LivesUsed    int
	TotalVolume  float64
	HighestPrice float64
	LowestPrice  float64
}

// Pattern is the detector's per-tick verdict. Active only once the streak
// has reached the configured length threshold.
type Pattern struct {
	Active       bool
	Side         market.Side
	Strength     float64
	HighestPrice float64
	LowestPrice  float64
}

// Detector owns one Streak and mutates it once per tick.
type Detector struct {
	params config.Params
	streak Streak
}

// NewDetector builds a detector with an empty streak.
func NewDetector(params config.Params) *Detector {
	return &Detector{
		params: params,
		streak: Streak{LowestPrice: math.Inf(1)},
	}
}

// Update advances the streak with one trade and reports the pattern state.
func (d *Detector) Update(tick market.Tick) Pattern {
	d.advance(tick)
	return d.analyze()
}

// Streak exposes the current streak for logging.
func (d *Detector) Streak() Streak { return d.streak }

func (d *Detector) advance(tick market.Tick) {
	if d.streak.Side == tick.LastSide {
		d.streak.Length++
		d.streak.TotalVolume += tick.LastSize
		d.streak.HighestPrice = math.Max(d.streak.HighestPrice, tick.LastPrice)
		d.streak.LowestPrice = math.Min(d.streak.LowestPrice, tick.LastPrice)
		return
	}

	var avgTradeSize float64
	if d.streak.Length > 0 {
		avgTradeSize = d.streak.TotalVolume / float64(d.streak.Length)
	}
	smallCounter := tick.LastSize < avgTradeSize*d.params.ForgivingMaxCounterRatio
	if d.streak.LivesUsed < d.params.ForgivingStreakMaxLives && smallCounter && avgTradeSize > 0 {
		// Forgive: the counter-trade costs a life and is not counted.
		d.streak.LivesUsed++
		return
	}

	d.streak = Streak{
		Side:         tick.LastSide,
		Length:       1,
		TotalVolume:  tick.LastSize,
		HighestPrice: tick.LastPrice,
		LowestPrice:  tick.LastPrice,
	}
}

func (d *Detector) analyze() Pattern {
	if d.streak.Length < d.params.ForgivingStreakLength {
		return Pattern{}
	}
	return Pattern{
		Active:       true,
		Side:         d.streak.Side,
		Strength:     float64(d.streak.Length),
		HighestPrice: d.streak.HighestPrice,
		LowestPrice:  d.streak.LowestPrice,
	}
}
