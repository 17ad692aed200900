// Package outcome scores emitted signals against subsequent price action
// and aggregates per-reason performance.
package outcome

import (
	"sync"

	"github.com/rs/zerolog"

	"tapebot-go/internal/config"
	"tapebot-go/internal/feature"
	"tapebot-go/internal/market"
	"tapebot-go/internal/regime"
)

// Outcome is the terminal state of a tracked signal.
type Outcome int

const (
	// Hit means price reached the target before the stop or the deadline.
	Hit Outcome = iota
	// Miss means price reached the stop first.
	Miss
	// Timeout means the holding window elapsed with neither level touched.
	Timeout
)

// String renders the outcome label used in logs and records.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "HIT"
	case Miss:
		return "MISS"
	default:
		return "TIMEOUT"
	}
}

type pendingSignal struct {
	signal market.Signal
	reason string
	entry  float64
	target float64
	stop   float64
	bypass bool
}

// Resolution describes one signal leaving the pending set.
type Resolution struct {
	Ts      float64
	Reason  string
	Side    market.Side
	Entry   float64
	Exit    float64
	Return  float64 // fractional return in the trade direction
	Outcome Outcome
	Bypass  bool
}

// ReasonStats aggregates outcomes for one signal reason.
type ReasonStats struct {
	Signals   int
	Hits      int
	Misses    int
	Timeouts  int
	SumReturn float64
}

// HitRate is hits over resolved signals, zero before any resolution.
func (s ReasonStats) HitRate() float64 {
	resolved := s.Hits + s.Misses + s.Timeouts
	if resolved == 0 {
		return 0
	}
	return float64(s.Hits) / float64(resolved)
}

// Tracker opens a virtual bracket for every emitted signal and resolves it
// against the tick stream. It plugs into the session as a sink for signal
// intake; Evaluate must be driven once per tick by the owning loop.
type Tracker struct {
	mu      sync.Mutex
	params  config.Params
	log     zerolog.Logger
	pending []pendingSignal
	stats   map[string]*ReasonStats

	totalSignals        int
	clustersVerified    int
	clustersInvalidated int
}

// NewTracker builds an empty tracker for one parameter bundle.
func NewTracker(params config.Params, log zerolog.Logger) *Tracker {
	return &Tracker{
		params: params,
		log:    log,
		stats:  make(map[string]*ReasonStats),
	}
}

// OnSignal opens a bracket at the current mid with the configured target and
// stop returns, both placed in the direction of the signal.
func (t *Tracker) OnSignal(sig market.Signal, snap feature.Snapshot, info regime.Info, bypass bool) {
	if snap.Mid <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	side := float64(sig.Side)
	reason := sig.Reason()
	t.pending = append(t.pending, pendingSignal{
		signal: sig,
		reason: reason,
		entry:  snap.Mid,
		target: snap.Mid * (1 + t.params.TargetReturn*side),
		stop:   snap.Mid * (1 + t.params.StopLossReturn*side),
		bypass: bypass,
	})
	t.reasonStats(reason).Signals++
	t.totalSignals++
	if t.params.ReportingIntervalSignals > 0 && t.totalSignals%t.params.ReportingIntervalSignals == 0 {
		t.report()
	}
}

// OnCluster keeps a running verified/invalidated tally for reporting.
func (t *Tracker) OnCluster(update market.ClusterUpdate, snap feature.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch update.Status {
	case market.ClusterVerified:
		t.clustersVerified++
	case market.ClusterInvalidated:
		t.clustersInvalidated++
	}
}

// Evaluate resolves every pending signal the given mid settles: target first,
// then stop, then the holding deadline. Returns the resolutions in signal
// order.
func (t *Tracker) Evaluate(ts, mid float64) []Resolution {
	t.mu.Lock()
	defer t.mu.Unlock()

	var resolutions []Resolution
	remaining := t.pending[:0]
	for _, p := range t.pending {
		outcome, done := t.settle(p, ts, mid)
		if !done {
			remaining = append(remaining, p)
			continue
		}
		// Hits and misses book the bracket levels; only a timeout marks the
		// position at the observed mid.
		var ret float64
		switch outcome {
		case Hit:
			ret = t.params.TargetReturn
		case Miss:
			ret = t.params.StopLossReturn
		default:
			ret = (mid - p.entry) / p.entry * float64(p.signal.Side)
		}
		res := Resolution{
			Ts:      ts,
			Reason:  p.reason,
			Side:    p.signal.Side,
			Entry:   p.entry,
			Exit:    mid,
			Return:  ret,
			Outcome: outcome,
			Bypass:  p.bypass,
		}
		resolutions = append(resolutions, res)

		stats := t.reasonStats(p.reason)
		stats.SumReturn += ret
		switch outcome {
		case Hit:
			stats.Hits++
		case Miss:
			stats.Misses++
		default:
			stats.Timeouts++
		}
		t.log.Debug().
			Str("reason", p.reason).
			Str("outcome", outcome.String()).
			Float64("return", ret).
			Msg("signal resolved")
	}
	t.pending = remaining
	return resolutions
}

func (t *Tracker) settle(p pendingSignal, ts, mid float64) (Outcome, bool) {
	if p.signal.Side == market.Buy {
		if mid >= p.target {
			return Hit, true
		}
		if mid <= p.stop {
			return Miss, true
		}
	} else {
		if mid <= p.target {
			return Hit, true
		}
		if mid >= p.stop {
			return Miss, true
		}
	}
	if ts-p.signal.Ts > t.params.MaxHoldingTimeSeconds {
		return Timeout, true
	}
	return 0, false
}

// Pending returns the number of unresolved signals.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stats returns a copy of the per-reason aggregates.
func (t *Tracker) Stats() map[string]ReasonStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]ReasonStats, len(t.stats))
	for reason, stats := range t.stats {
		out[reason] = *stats
	}
	return out
}

func (t *Tracker) reasonStats(reason string) *ReasonStats {
	stats, ok := t.stats[reason]
	if !ok {
		stats = &ReasonStats{}
		t.stats[reason] = stats
	}
	return stats
}

// report emits the periodic scoreboard. Caller holds the lock.
func (t *Tracker) report() {
	event := t.log.Info().
		Int("signals", t.totalSignals).
		Int("pending", len(t.pending)).
		Int("clusters_verified", t.clustersVerified).
		Int("clusters_invalidated", t.clustersInvalidated)
	for reason, stats := range t.stats {
		resolved := stats.Hits + stats.Misses + stats.Timeouts
		event = event.
			Int(reason+"_resolved", resolved).
			Float64(reason+"_hit_rate", stats.HitRate()).
			Float64(reason+"_sum_return", stats.SumReturn)
	}
	event.Msg("performance report")
}

// Report forces the scoreboard out regardless of the signal interval.
func (t *Tracker) Report() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.report()
}
