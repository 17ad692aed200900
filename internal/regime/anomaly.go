package regime

import (
	"math"
	"sort"

	"tapebot-go/internal/config"
)

// AnomalyDetector keeps a bounded history of conviction magnitudes and
// flags readings above a high percentile of that history. The incoming
// value is judged against history excluding itself, then recorded.
type AnomalyDetector struct {
	params  config.Params
	history []float64
	sorted  []float64
}

// NewAnomalyDetector builds an empty detector.
func NewAnomalyDetector(params config.Params) *AnomalyDetector {
	capacity := params.ConvictionAnomalyHistorySize
	return &AnomalyDetector{
		params:  params,
		history: make([]float64, 0, capacity),
		sorted:  make([]float64, 0, capacity),
	}
}

// Ready reports whether the history holds at least half its capacity.
func (d *AnomalyDetector) Ready() bool {
	return float64(len(d.history)) >= float64(d.params.ConvictionAnomalyHistorySize)*0.5
}

// Observe evaluates the regime's conviction against recent history and
// then folds it in. Non-conviction regimes are ignored entirely.
func (d *AnomalyDetector) Observe(info Info) (anomaly bool, rank float64) {
	if info.Metric != Conviction {
		return false, 0
	}
	current := math.Abs(info.MetricValue)

	if d.Ready() {
		cutoff := int(float64(len(d.sorted)) * d.params.ConvictionAnomalyBypassPercentile / 100.0)
		if cutoff < len(d.sorted) {
			anomaly = current > d.sorted[cutoff]
		}
	}
	if len(d.sorted) > 0 {
		rank = float64(sort.SearchFloat64s(d.sorted, current)) / float64(len(d.sorted)) * 100.0
	}

	if len(d.history) == d.params.ConvictionAnomalyHistorySize {
		oldest := d.history[0]
		idx := sort.SearchFloat64s(d.sorted, oldest)
		if idx < len(d.sorted) && d.sorted[idx] == oldest {
			d.sorted = append(d.sorted[:idx], d.sorted[idx+1:]...)
		}
		d.history = d.history[1:]
	}
	d.history = append(d.history, current)
	idx := sort.SearchFloat64s(d.sorted, current)
	d.sorted = append(d.sorted, 0)
	copy(d.sorted[idx+1:], d.sorted[idx:])
	d.sorted[idx] = current

	return anomaly, rank
}
