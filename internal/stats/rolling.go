// Package stats provides incremental estimators over bounded sliding windows.
package stats

import (
	"math"
	"sort"
)

// RollingPercentile answers percentile-rank queries over a bounded FIFO
// window. It keeps the samples twice: in arrival order for eviction and
// value-sorted for O(log n) rank lookups. The linear shift on insert keeps
// the structure simple and is fine at the configured window sizes (low
// thousands).
type RollingPercentile struct {
	capacity int
	window   []float64
	sorted   []float64
}

// NewRollingPercentile builds a percentile window holding at most capacity samples.
func NewRollingPercentile(capacity int) *RollingPercentile {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingPercentile{
		capacity: capacity,
		window:   make([]float64, 0, capacity),
		sorted:   make([]float64, 0, capacity),
	}
}

// Update inserts a sample, evicting the oldest one once the window is full.
func (r *RollingPercentile) Update(value float64) {
	if len(r.window) == r.capacity {
		oldest := r.window[0]
		idx := sort.SearchFloat64s(r.sorted, oldest)
		if idx < len(r.sorted) && r.sorted[idx] == oldest {
			r.sorted = append(r.sorted[:idx], r.sorted[idx+1:]...)
		}
		r.window = r.window[1:]
	}
	r.window = append(r.window, value)
	idx := sort.SearchFloat64s(r.sorted, value)
	r.sorted = append(r.sorted, 0)
	copy(r.sorted[idx+1:], r.sorted[idx:])
	r.sorted[idx] = value
}

// Rank returns 100 * (stored values strictly below value) / count, or a
// neutral 50 when the window is empty. Ties count toward the lower rank.
func (r *RollingPercentile) Rank(value float64) float64 {
	if len(r.sorted) == 0 {
		return 50.0
	}
	below := sort.SearchFloat64s(r.sorted, value)
	return float64(below) / float64(len(r.sorted)) * 100.0
}

// Ready reports whether the window holds more than 20% of its capacity.
func (r *RollingPercentile) Ready() bool {
	return float64(len(r.window)) > float64(r.capacity)*0.20
}

// Len returns the number of stored samples.
func (r *RollingPercentile) Len() int { return len(r.window) }

// RollingStdDev maintains running sum and sum-of-squares over a bounded
// FIFO window for O(1) mean and population standard deviation.
type RollingStdDev struct {
	capacity int
	window   []float64
	sum      float64
	sumSq    float64
}

// NewRollingStdDev builds a std-dev window holding at most capacity samples.
func NewRollingStdDev(capacity int) *RollingStdDev {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingStdDev{
		capacity: capacity,
		window:   make([]float64, 0, capacity),
	}
}

// Update folds a sample into the running sums, evicting the oldest
// sample's contribution first when the window is full.
func (r *RollingStdDev) Update(value float64) {
	if len(r.window) == r.capacity {
		oldest := r.window[0]
		r.sum -= oldest
		r.sumSq -= oldest * oldest
		r.window = r.window[1:]
	}
	r.window = append(r.window, value)
	r.sum += value
	r.sumSq += value * value
}

// Mean returns the window average, or 0 when empty.
func (r *RollingStdDev) Mean() float64 {
	if len(r.window) == 0 {
		return 0
	}
	return r.sum / float64(len(r.window))
}

// StdDev returns the population standard deviation, or 0 with fewer than
// two samples. Round-off can push the raw variance slightly negative, so
// it is clamped before the square root.
func (r *RollingStdDev) StdDev() float64 {
	n := len(r.window)
	if n < 2 {
		return 0
	}
	mean := r.sum / float64(n)
	variance := r.sumSq/float64(n) - mean*mean
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}

// Ready reports whether the window holds at least half of its capacity.
func (r *RollingStdDev) Ready() bool {
	return float64(len(r.window)) >= float64(r.capacity)*0.5
}

// Len returns the number of stored samples.
func (r *RollingStdDev) Len() int { return len(r.window) }

// Sum exposes the running sum for window-bound inspection in tests.
func (r *RollingStdDev) Sum() float64 { return r.sum }
