// Package feature derives the per-tick microstructure snapshot the signal
// engine decides on.
package feature

import (
	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
	"tapebot-go/internal/stats"
)

// Snapshot is the fixed-shape feature record produced once per tick.
type Snapshot struct {
	Mid               float64
	LastSide          market.Side
	SizePctRank       float64
	IsLargeTrade      bool
	TFI               float64
	AdaptiveTFIThresh float64
	SpreadVelocity    float64
	PriceImpact       float64
	PriceImpactMean   float64
	PriceImpactStdDev float64
	DominantFlow      int
}

type flowEntry struct {
	size float64
	side market.Side
}

// Engine folds each tick into the trade-size, order-flow, and price-impact
// benchmarkers and emits one Snapshot per call.
type Engine struct {
	params       config.Params
	tradeSize    *stats.RollingPercentile
	tfiBench     *stats.RollingStdDev
	impactBench  *stats.RollingStdDev
	tradeFlow    []flowEntry
	spreads      []float64
	dominant     []market.Side
	dominantSum  int
}

// NewEngine builds a feature engine for one parameter bundle. The engine
// owns all window state; a parameter swap means constructing a fresh one.
func NewEngine(params config.Params) *Engine {
	return &Engine{
		params:      params,
		tradeSize:   stats.NewRollingPercentile(params.PercentileCapacity()),
		tfiBench:    stats.NewRollingStdDev(params.TFIStdDevLookback),
		impactBench: stats.NewRollingStdDev(params.TFIStdDevLookback),
	}
}

// Update folds one tick into every benchmarker and returns the snapshot.
func (e *Engine) Update(tick market.Tick) Snapshot {
	e.tradeFlow = append(e.tradeFlow, flowEntry{size: tick.LastSize, side: tick.LastSide})
	if len(e.tradeFlow) > e.params.TFILookbackTrades {
		e.tradeFlow = e.tradeFlow[1:]
	}
	var tfi float64
	for _, entry := range e.tradeFlow {
		tfi += entry.size * float64(entry.side)
	}
	e.tfiBench.Update(tfi)

	e.tradeSize.Update(tick.LastSize)
	sizePctRank := e.tradeSize.Rank(tick.LastSize)

	impact := tick.PriceImpact()
	e.impactBench.Update(impact)

	e.spreads = append(e.spreads, tick.Spread())
	if len(e.spreads) > e.params.SpreadVelocityTicks {
		e.spreads = e.spreads[1:]
	}
	spreadVelocity := 0.0
	if len(e.spreads) > 1 {
		spreadVelocity = tick.Spread() - e.spreads[0]
	}

	e.dominant = append(e.dominant, tick.LastSide)
	e.dominantSum += int(tick.LastSide)
	if len(e.dominant) > e.params.DominantFlowLookbackTrades {
		e.dominantSum -= int(e.dominant[0])
		e.dominant = e.dominant[1:]
	}

	return Snapshot{
		Mid:               tick.Mid(),
		LastSide:          tick.LastSide,
		SizePctRank:       sizePctRank,
		IsLargeTrade:      sizePctRank > e.params.LargeTradePercentile,
		TFI:               tfi,
		AdaptiveTFIThresh: e.tfiBench.StdDev() * e.params.TFIStdDevMultiplier,
		SpreadVelocity:    spreadVelocity,
		PriceImpact:       impact,
		PriceImpactMean:   e.impactBench.Mean(),
		PriceImpactStdDev: e.impactBench.StdDev(),
		DominantFlow:      e.dominantSum,
	}
}

// Ready gates the rest of the pipeline until every benchmarker has seen
// enough samples.
func (e *Engine) Ready() bool {
	return e.tradeSize.Ready() && e.tfiBench.Ready() && e.impactBench.Ready()
}
