// Package regime classifies market state from multi-horizon order-flow
// deltas and flags anomalous conviction readings.
package regime

import (
	"fmt"

	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
)

// State is the consensus market regime.
type State int

const (
	// Neutral means the horizons disagree or sit inside the threshold band.
	Neutral State = iota
	// Bullish means enough horizons show positive volume delta.
	Bullish
	// Bearish means enough horizons show negative volume delta.
	Bearish
)

// String renders the regime label.
func (s State) String() string {
	switch s {
	case Bullish:
		return "BULLISH"
	case Bearish:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

// Metric names what Info.MetricValue measures.
type Metric int

const (
	// Divergence is the spread between the strongest and weakest horizon.
	Divergence Metric = iota
	// Conviction is the mean delta of the agreeing horizons.
	Conviction
)

// String renders the metric name for logs.
func (m Metric) String() string {
	if m == Conviction {
		return "Conviction"
	}
	return "Divergence"
}

// TimeframeDelta pairs a horizon label with its volume-delta percentage.
type TimeframeDelta struct {
	Label    string
	DeltaPct float64
}

// Info is the per-tick regime classification. Recomputed fresh each call,
// never persisted.
type Info struct {
	State       State
	Metric      Metric
	MetricValue float64
	Deltas      []TimeframeDelta
}

type tradeRec struct {
	ts   float64
	size float64
	side market.Side
}

type horizon struct {
	label    string
	lookback float64
}

// Analyzer maintains a trade history capped at the longest horizon and
// votes a regime from the per-horizon buy/sell volume deltas.
type Analyzer struct {
	params      config.Params
	horizons    []horizon
	maxLookback float64
	trades      []tradeRec
}

// NewAnalyzer derives the horizon set from the configured timeframes.
func NewAnalyzer(params config.Params) *Analyzer {
	horizons := make([]horizon, 0, len(params.RegimeTimeframesMinutes))
	maxLookback := 0.0
	for _, minutes := range params.RegimeTimeframesMinutes {
		lookback := minutes * 60.0
		horizons = append(horizons, horizon{
			label:    fmt.Sprintf("%gm", minutes),
			lookback: lookback,
		})
		if lookback > maxLookback {
			maxLookback = lookback
		}
	}
	return &Analyzer{params: params, horizons: horizons, maxLookback: maxLookback}
}

// Update appends the trade and drops history older than the longest horizon.
func (a *Analyzer) Update(tick market.Tick) {
	a.trades = append(a.trades, tradeRec{ts: tick.Ts, size: tick.LastSize, side: tick.LastSide})
	cutoff := tick.Ts - a.maxLookback
	idx := 0
	for idx < len(a.trades) && a.trades[idx].ts < cutoff {
		idx++
	}
	if idx > 0 {
		a.trades = a.trades[idx:]
	}
}

func (a *Analyzer) deltaPct(lookback, now float64) float64 {
	cutoff := now - lookback
	var buyVolume, sellVolume float64
	for i := len(a.trades) - 1; i >= 0; i-- {
		rec := a.trades[i]
		if rec.ts < cutoff {
			break
		}
		if rec.side == market.Buy {
			buyVolume += rec.size
		} else {
			sellVolume += rec.size
		}
	}
	total := buyVolume + sellVolume
	if total == 0 {
		return 0
	}
	return (buyVolume - sellVolume) / total * 100.0
}

// Regime votes each horizon against the delta threshold and resolves the
// consensus. Agreeing horizons yield a Conviction reading; disagreement
// yields the Divergence spread.
func (a *Analyzer) Regime(now float64) Info {
	thresh := a.params.RegimeDeltaThreshPct
	deltas := make([]TimeframeDelta, 0, len(a.horizons))
	bullish, bearish := 0, 0
	for _, h := range a.horizons {
		delta := a.deltaPct(h.lookback, now)
		deltas = append(deltas, TimeframeDelta{Label: h.label, DeltaPct: delta})
		switch {
		case delta > thresh:
			bullish++
		case delta < -thresh:
			bearish++
		}
	}

	needed := a.params.RegimeConsensusVotes
	switch {
	case bullish >= needed:
		return Info{State: Bullish, Metric: Conviction, MetricValue: meanAbove(deltas, thresh), Deltas: deltas}
	case bearish >= needed:
		return Info{State: Bearish, Metric: Conviction, MetricValue: meanBelow(deltas, -thresh), Deltas: deltas}
	default:
		return Info{State: Neutral, Metric: Divergence, MetricValue: spread(deltas), Deltas: deltas}
	}
}

func meanAbove(deltas []TimeframeDelta, thresh float64) float64 {
	var sum float64
	var n int
	for _, d := range deltas {
		if d.DeltaPct > thresh {
			sum += d.DeltaPct
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func meanBelow(deltas []TimeframeDelta, thresh float64) float64 {
	var sum float64
	var n int
	for _, d := range deltas {
		if d.DeltaPct < thresh {
			sum += d.DeltaPct
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func spread(deltas []TimeframeDelta) float64 {
	if len(deltas) == 0 {
		return 0
	}
	lo, hi := deltas[0].DeltaPct, deltas[0].DeltaPct
	for _, d := range deltas[1:] {
		if d.DeltaPct < lo {
			lo = d.DeltaPct
		}
		if d.DeltaPct > hi {
			hi = d.DeltaPct
		}
	}
	return hi - lo
}
