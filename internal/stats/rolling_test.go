package stats

import (
	"math/rand"
	"testing"
)

func TestRankEmptyWindowIsNeutral(t *testing.T) {
	r := NewRollingPercentile(100)
	if got := r.Rank(42); got != 50.0 {
		t.Fatalf("expected neutral 50 on empty window, got %.2f", got)
	}
}

func TestRankMonotonicInValue(t *testing.T) {
	r := NewRollingPercentile(500)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 400; i++ {
		r.Update(rng.Float64() * 100)
	}
	prev := -1.0
	for v := 0.0; v <= 100.0; v += 0.5 {
		rank := r.Rank(v)
		if rank < prev {
			t.Fatalf("rank not monotonic: rank(%.1f)=%.3f < previous %.3f", v, rank, prev)
		}
		prev = rank
	}
}

func TestRankCountsStrictlyLess(t *testing.T) {
	r := NewRollingPercentile(10)
	for _, v := range []float64{5, 5, 5, 10} {
		r.Update(v)
	}
	// Three stored values equal 5; none are strictly below it.
	if got := r.Rank(5); got != 0 {
		t.Fatalf("tie should take the lower rank, got %.2f", got)
	}
	if got := r.Rank(10); got != 75.0 {
		t.Fatalf("expected 75 for value above the ties, got %.2f", got)
	}
}

func TestPercentileEvictionIsFIFO(t *testing.T) {
	r := NewRollingPercentile(3)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		r.Update(v)
	}
	if r.Len() != 3 {
		t.Fatalf("window should cap at 3, got %d", r.Len())
	}
	// Window now holds {3,4,5}; 1 and 2 must be gone.
	if got := r.Rank(3); got != 0 {
		t.Fatalf("oldest samples not evicted, rank(3)=%.2f", got)
	}
	if got := r.Rank(6); got != 100.0 {
		t.Fatalf("expected full rank above window, got %.2f", got)
	}
}

func TestPercentileReadiness(t *testing.T) {
	r := NewRollingPercentile(100)
	for i := 0; i < 20; i++ {
		r.Update(float64(i))
	}
	if r.Ready() {
		t.Fatalf("exactly 20%% of capacity should not be ready")
	}
	r.Update(21)
	if !r.Ready() {
		t.Fatalf("above 20%% of capacity should be ready")
	}
}

func TestStdDevWindowBound(t *testing.T) {
	r := NewRollingStdDev(4)
	for v := 1.0; v <= 10.0; v++ {
		r.Update(v)
	}
	if r.Len() != 4 {
		t.Fatalf("window should cap at 4, got %d", r.Len())
	}
	// Last four samples are 7..10.
	if got, want := r.Sum(), 7.0+8+9+10; got != want {
		t.Fatalf("running sum %v, want %v", got, want)
	}
	if got, want := r.Mean(), 8.5; got != want {
		t.Fatalf("mean %v, want %v", got, want)
	}
}

func TestStdDevPopulationVariance(t *testing.T) {
	r := NewRollingStdDev(10)
	for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		r.Update(v)
	}
	// Canonical population std-dev example: exactly 2.
	if got := r.StdDev(); got < 1.9999999 || got > 2.0000001 {
		t.Fatalf("population std-dev %v, want 2", got)
	}
}

func TestStdDevNeverNegative(t *testing.T) {
	r := NewRollingStdDev(50)
	// Large near-identical magnitudes provoke catastrophic cancellation in
	// sumSq/n - mean^2.
	base := 1e9
	for i := 0; i < 200; i++ {
		r.Update(base + float64(i%2)*1e-6)
	}
	if got := r.StdDev(); got < 0 {
		t.Fatalf("std-dev must be non-negative, got %v", got)
	}
}

func TestStdDevFewSamples(t *testing.T) {
	r := NewRollingStdDev(10)
	if got := r.StdDev(); got != 0 {
		t.Fatalf("empty window std-dev should be 0, got %v", got)
	}
	r.Update(3)
	if got := r.StdDev(); got != 0 {
		t.Fatalf("single sample std-dev should be 0, got %v", got)
	}
	if got := r.Mean(); got != 3 {
		t.Fatalf("single sample mean should be 3, got %v", got)
	}
}

func TestStdDevReadiness(t *testing.T) {
	r := NewRollingStdDev(10)
	for i := 0; i < 4; i++ {
		r.Update(float64(i))
	}
	if r.Ready() {
		t.Fatalf("below half capacity should not be ready")
	}
	r.Update(4)
	if !r.Ready() {
		t.Fatalf("half capacity should be ready")
	}
}
