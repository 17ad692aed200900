package pulse

import (
	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
)

const recentSignalCap = 10

// PunchEngine detects two-signal clusters and verifies them against the
// net order flow of the following trades. At most one cluster is pending
// verification at a time.
type PunchEngine struct {
	params       config.Params
	recent       []market.Signal
	pending      *market.Signal
	tradeCounter int
	netFlow      int
}

// NewPunchEngine builds an idle punch engine.
func NewPunchEngine(params config.Params) *PunchEngine {
	return &PunchEngine{params: params, recent: make([]market.Signal, 0, recentSignalCap)}
}

// Verifying reports whether a cluster is pending verification.
func (p *PunchEngine) Verifying() bool { return p.pending != nil }

func (p *PunchEngine) resetVerification() {
	p.pending = nil
	p.tradeCounter = 0
	p.netFlow = 0
}

// requiredNetFlow scales the verification bar down as signal strength
// rises: stronger pulses need less supporting flow.
func (p *PunchEngine) requiredNetFlow(strength float64) int {
	switch {
	case strength > 200:
		return 6
	case strength > 75:
		return 8
	case strength > 25:
		return 10
	default:
		return p.params.VerificationMinNetFlow
	}
}

// Step advances the state machine by one tick. sig may be nil when the
// signal engine stayed quiet (or the session redirected a bypass pulse).
func (p *PunchEngine) Step(sig *market.Signal, tick market.Tick) market.ClusterUpdate {
	if p.pending != nil {
		p.tradeCounter++
		p.netFlow += int(tick.LastSide)
		if p.tradeCounter >= p.params.VerificationTradeLookahead {
			required := p.requiredNetFlow(p.pending.Strength)
			flow := p.netFlow
			verified := abs(flow) >= required && flow*int(p.pending.Side) > 0
			update := market.ClusterUpdate{Status: market.ClusterInvalidated, Signal: *p.pending, NetFlow: flow}
			if verified {
				update.Status = market.ClusterVerified
			}
			p.resetVerification()
			return update
		}
		return market.ClusterUpdate{Status: market.ClusterPending}
	}

	if sig == nil {
		return market.ClusterUpdate{Status: market.ClusterIdle}
	}

	p.recent = append(p.recent, *sig)
	if len(p.recent) > recentSignalCap {
		p.recent = p.recent[1:]
	}
	if len(p.recent) < 2 {
		return market.ClusterUpdate{Status: market.ClusterIdle}
	}

	last := p.recent[len(p.recent)-1]
	prev := p.recent[len(p.recent)-2]
	if last.Side != prev.Side || (last.Ts-prev.Ts)*1000 >= float64(p.params.ClusterMaxLookbackMs) {
		return market.ClusterUpdate{Status: market.ClusterIdle}
	}

	// An absorption setup needs a strong non-absorption follow-through;
	// two absorptions in a row prove nothing.
	if prev.Kind.IsAbsorption() && (last.Kind.IsAbsorption() || last.Strength < p.params.StrongEscalationThresh) {
		return market.ClusterUpdate{Status: market.ClusterIdle}
	}

	strongFirst := prev.Strength >= p.params.WeakSignalStrength
	escalated := prev.Strength < p.params.WeakSignalStrength && last.Strength >= p.params.StrongEscalationThresh
	if !strongFirst && !escalated {
		return market.ClusterUpdate{Status: market.ClusterIdle}
	}

	pending := last
	p.pending = &pending
	return market.ClusterUpdate{Status: market.ClusterFound, Signal: last}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
