package pulse

import (
	"github.com/rs/zerolog"

	"tapebot-go/internal/config"
	"tapebot-go/internal/feature"
	"tapebot-go/internal/market"
	"tapebot-go/internal/metrics"
	"tapebot-go/internal/regime"
	"tapebot-go/internal/stealth"
)

// Sink receives pipeline outputs. Implementations observe immutable
// snapshots only; all mutable state stays inside the session.
type Sink interface {
	// OnSignal fires once per emitted pulse. bypass marks a conviction
	// anomaly that skips cluster verification.
	OnSignal(sig market.Signal, snap feature.Snapshot, info regime.Info, bypass bool)
	// OnCluster fires on CLUSTER_FOUND, VERIFIED, and INVALIDATED.
	OnCluster(update market.ClusterUpdate, snap feature.Snapshot)
}

// Sinks fans events out to multiple sinks in order.
type Sinks []Sink

func (s Sinks) OnSignal(sig market.Signal, snap feature.Snapshot, info regime.Info, bypass bool) {
	for _, sink := range s {
		sink.OnSignal(sig, snap, info, bypass)
	}
}

func (s Sinks) OnCluster(update market.ClusterUpdate, snap feature.Snapshot) {
	for _, sink := range s {
		sink.OnCluster(update, snap)
	}
}

// Session owns every stateful component of the decision pipeline for one
// parameter bundle. Ticks are processed strictly sequentially; a parameter
// swap rebuilds the session wholesale so no window state survives under
// mismatched capacities.
type Session struct {
	params   config.Params
	log      zerolog.Logger
	sink     Sink
	features *feature.Engine
	stealth  *stealth.Detector
	regimes  *regime.Analyzer
	anomaly  *regime.AnomalyDetector
	engine   *Engine
	punch    *PunchEngine

	firstTickTs float64
	warmed      bool
	signalCount int
}

// NewSession wires a fresh pipeline for the given parameters.
func NewSession(params config.Params, log zerolog.Logger, sink Sink) *Session {
	return &Session{
		params:   params,
		log:      log,
		sink:     sink,
		features: feature.NewEngine(params),
		stealth:  stealth.NewDetector(params),
		regimes:  regime.NewAnalyzer(params),
		anomaly:  regime.NewAnomalyDetector(params),
		engine:   NewEngine(params, log),
		punch:    NewPunchEngine(params),
	}
}

// Params returns the bundle this session was built with.
func (s *Session) Params() config.Params { return s.params }

// SignalCount returns the number of pulses emitted so far.
func (s *Session) SignalCount() int { return s.signalCount }

// Warmed reports whether the benchmarkers are populated enough to decide.
func (s *Session) Warmed() bool { return s.warmed }

// Swap replaces the parameter bundle between ticks, discarding every
// rolling window and restarting the warmup clock. Calling this mid-tick
// is structurally impossible under the single-consumer loop.
func (s *Session) Swap(params config.Params) {
	s.params = params
	s.features = feature.NewEngine(params)
	s.stealth = stealth.NewDetector(params)
	s.regimes = regime.NewAnalyzer(params)
	s.anomaly = regime.NewAnomalyDetector(params)
	s.engine = NewEngine(params, s.log)
	s.punch = NewPunchEngine(params)
	s.firstTickTs = 0
	s.warmed = false
	metrics.ParamSwapsTotal.Inc()
	s.log.Info().Msg("parameter bundle swapped, pipeline state rebuilt")
}

// OnTick runs the full pipeline for one tick to completion.
func (s *Session) OnTick(tick market.Tick) {
	s.regimes.Update(tick)
	snap := s.features.Update(tick)

	if !s.warmed {
		if s.firstTickTs == 0 {
			s.firstTickTs = tick.Ts
		}
		warmupDone := tick.Ts >= s.firstTickTs+s.params.BenchmarkWarmupMinutes*60.0
		if warmupDone && s.features.Ready() {
			s.warmed = true
			s.log.Info().Msg("warm-up complete, engine online")
		} else {
			return
		}
	}

	pattern := s.stealth.Update(tick)
	sig := s.engine.Step(tick.Ts, snap, pattern)

	punchSig := sig
	if sig != nil {
		s.signalCount++
		info := s.regimes.Regime(tick.Ts)
		bypass := false
		if info.Metric == regime.Conviction {
			anomaly, rank := s.anomaly.Observe(info)
			if anomaly {
				// Anomalous conviction: act on the pulse directly and keep
				// it away from the punch engine's slower verification.
				bypass = true
				punchSig = nil
				s.log.Info().
					Str("reason", sig.Reason()).
					Float64("conviction", info.MetricValue).
					Float64("rank", rank).
					Msg("conviction anomaly bypass")
			}
		}
		metrics.SignalsTotal.WithLabelValues(sig.Reason()).Inc()
		s.sink.OnSignal(*sig, snap, info, bypass)
	}

	update := s.punch.Step(punchSig, tick)
	switch update.Status {
	case market.ClusterFound, market.ClusterVerified, market.ClusterInvalidated:
		metrics.ClustersTotal.WithLabelValues(update.Status.String()).Inc()
		if update.Status == market.ClusterVerified {
			s.log.Info().
				Str("reason", update.Signal.Reason()).
				Int("net_flow", update.NetFlow).
				Int("dominant_flow", snap.DominantFlow).
				Bool("trend_following", int(update.Signal.Side)*snap.DominantFlow > 0).
				Msg("cluster verified")
		}
		s.sink.OnCluster(update, snap)
	}
}
