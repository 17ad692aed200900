// Package pulse hosts the per-tick decision pipeline: trigger detection,
// confirmation, exhaustion filtering, and cluster verification.
package pulse

import (
	"math"

	"github.com/rs/zerolog"

	"tapebot-go/internal/config"
	"tapebot-go/internal/feature"
	"tapebot-go/internal/market"
	"tapebot-go/internal/stealth"
)

const strengthEpsilon = 1e-9

// Engine turns feature snapshots and stealth patterns into signal pulses,
// at most one per cooldown window.
type Engine struct {
	params              config.Params
	log                 zerolog.Logger
	lastPulseTs         float64
	lastExhaustionLogTs float64
}

// NewEngine builds a signal engine for one parameter bundle.
func NewEngine(params config.Params, log zerolog.Logger) *Engine {
	return &Engine{params: params, log: log}
}

// Step evaluates one tick. Returns nil when no pulse fires.
func (e *Engine) Step(ts float64, snap feature.Snapshot, pattern stealth.Pattern) *market.Signal {
	if ts-e.lastPulseTs < float64(e.params.SignalCooldownMs)/1000.0 {
		return nil
	}

	side := snap.LastSide

	// Absorption outranks everything and skips standard confirmation:
	// a heavily negative impact z-score means size hit the book and price
	// refused to follow.
	if snap.PriceImpactStdDev > strengthEpsilon {
		z := (snap.PriceImpact - snap.PriceImpactMean) / snap.PriceImpactStdDev
		if z < -e.params.AbsorptionZScoreThresh {
			kind := market.KindAbsorption
			if snap.SizePctRank >= e.params.LargeTradePercentile {
				kind = market.KindMaxAbsorption
			}
			e.lastPulseTs = ts
			return &market.Signal{Ts: ts, Side: -side, Kind: kind, Strength: math.Abs(z) * 10.0}
		}
	}

	stealthAligned := pattern.Active && side == pattern.Side
	var kind market.Kind
	switch {
	case snap.IsLargeTrade && stealthAligned:
		kind = market.KindCombo
	case snap.IsLargeTrade:
		kind = market.KindShock
	case stealthAligned:
		kind = market.KindForgiving
	default:
		return nil
	}

	if math.Abs(snap.TFI) <= snap.AdaptiveTFIThresh {
		return nil
	}
	if math.Abs(snap.SpreadVelocity) >= e.params.SpreadVelocityMaxAbs {
		return nil
	}
	if snap.PriceImpact <= e.params.MinPriceImpactConfirm {
		return nil
	}

	strength := e.strength(snap, kind, pattern)
	if strength < e.params.MinSignalStrength {
		return nil
	}

	if kind.StealthBacked() && e.exhausted(ts, side, snap, pattern) {
		return nil
	}

	e.lastPulseTs = ts
	return &market.Signal{Ts: ts, Side: side, Kind: kind, Strength: strength}
}

func (e *Engine) strength(snap feature.Snapshot, kind market.Kind, pattern stealth.Pattern) float64 {
	stdDev := snap.AdaptiveTFIThresh/e.params.TFIStdDevMultiplier + strengthEpsilon
	confirmation := math.Abs(snap.TFI) / stdDev

	var trigger float64
	switch kind {
	case market.KindShock, market.KindCombo:
		trigger = (snap.SizePctRank - e.params.LargeTradePercentile) * 5
	default:
		if pattern.Active {
			trigger = pattern.Strength
		}
	}
	return 0.5*trigger + 0.5*confirmation
}

// exhausted invalidates stealth signals from very long streaks whose price
// has stopped making new highs (buys) or lows (sells). Every exhausted
// occurrence is suppressed; the cooldown only throttles the log line.
func (e *Engine) exhausted(ts float64, side market.Side, snap feature.Snapshot, pattern stealth.Pattern) bool {
	if pattern.Strength <= float64(e.params.ExhaustionStreakMinLength) {
		return false
	}
	exhausted := false
	if side == market.Buy && snap.Mid < pattern.HighestPrice {
		exhausted = true
	} else if side == market.Sell && snap.Mid > pattern.LowestPrice {
		exhausted = true
	}
	if exhausted && ts-e.lastExhaustionLogTs > e.params.ExhaustionLogCooldownSecs {
		e.lastExhaustionLogTs = ts
		e.log.Warn().
			Int("side", int(side)).
			Float64("streak", pattern.Strength).
			Float64("mid", snap.Mid).
			Msg("streak exhaustion: price failing to make progress, signal invalidated")
	}
	return exhausted
}
