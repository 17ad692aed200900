// Package bandit rotates engine parameter bundles with a softmax policy
// over each arm's recent realized returns.
package bandit

import (
	"math"
	"math/rand"
	"sync"

	"tapebot-go/internal/config"
)

const minTemperature = 0.05

// Manager scores one arm per parameter bundle. Exploration cools as the
// temperature decays toward the floor.
type Manager struct {
	mu          sync.Mutex
	rng         *rand.Rand
	temperature float64
	decay       float64
	window      int
	histories   [][]float64
	current     int
}

// NewManager builds a manager for n arms. A non-zero seed makes arm
// selection reproducible.
func NewManager(n int, cfg config.Bandit, seed int64) *Manager {
	if n < 1 {
		n = 1
	}
	window := cfg.PnLWindow
	if window < 1 {
		window = 1
	}
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Manager{
		rng:         rand.New(rand.NewSource(seed)),
		temperature: cfg.Temperature,
		decay:       cfg.Decay,
		window:      window,
		histories:   make([][]float64, n),
	}
}

// Current returns the arm selected by the last SelectArm call.
func (m *Manager) Current() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SelectArm samples the next arm from the softmax over average returns and
// cools the temperature one step.
func (m *Manager) SelectArm() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	avgs := m.averages()
	temp := m.temperature
	if temp < minTemperature {
		temp = minTemperature
	}

	weights := make([]float64, len(avgs))
	var total float64
	for i, avg := range avgs {
		weights[i] = math.Exp(avg / temp)
		total += weights[i]
	}

	pick := m.rng.Float64() * total
	arm := len(weights) - 1
	for i, w := range weights {
		pick -= w
		if pick < 0 {
			arm = i
			break
		}
	}

	m.temperature *= m.decay
	m.current = arm
	return arm
}

// RecordPnL credits a realized return to the current arm.
func (m *Manager) RecordPnL(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(m.current, pnl)
}

// RecordPnLFor credits a realized return to a specific arm, for resolutions
// that land after a switch.
func (m *Manager) RecordPnLFor(arm int, pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if arm < 0 || arm >= len(m.histories) {
		return
	}
	m.record(arm, pnl)
}

func (m *Manager) record(arm int, pnl float64) {
	history := append(m.histories[arm], pnl)
	if len(history) > m.window {
		history = history[1:]
	}
	m.histories[arm] = history
}

// Averages returns the mean recent return per arm, zero for unseen arms.
func (m *Manager) Averages() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.averages()
}

func (m *Manager) averages() []float64 {
	avgs := make([]float64, len(m.histories))
	for i, history := range m.histories {
		if len(history) == 0 {
			continue
		}
		var sum float64
		for _, pnl := range history {
			sum += pnl
		}
		avgs[i] = sum / float64(len(history))
	}
	return avgs
}
