package outcome

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"tapebot-go/internal/feature"
	"tapebot-go/internal/market"
	"tapebot-go/internal/regime"
)

// SignalRecord is one JSONL row of signal or cluster activity.
type SignalRecord struct {
	Type     string  `json:"type"` // "signal" or "cluster"
	Ts       float64 `json:"ts"`
	Reason   string  `json:"reason"`
	Side     int     `json:"side"`
	Strength float64 `json:"strength"`
	Mid      float64 `json:"mid"`
	Regime   string  `json:"regime,omitempty"`
	Bypass   bool    `json:"bypass,omitempty"`
	Status   string  `json:"status,omitempty"`
	NetFlow  int     `json:"net_flow,omitempty"`
}

// SignalRecorder appends signal and cluster events as JSON lines for later
// analysis.
type SignalRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewSignalRecorder creates/opens the target file and returns a recorder.
func NewSignalRecorder(path string) (*SignalRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &SignalRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// OnSignal writes one pulse row.
func (r *SignalRecorder) OnSignal(sig market.Signal, snap feature.Snapshot, info regime.Info, bypass bool) {
	r.write(SignalRecord{
		Type:     "signal",
		Ts:       sig.Ts,
		Reason:   sig.Reason(),
		Side:     int(sig.Side),
		Strength: sig.Strength,
		Mid:      snap.Mid,
		Regime:   info.State.String(),
		Bypass:   bypass,
	})
}

// OnCluster writes one cluster transition row.
func (r *SignalRecorder) OnCluster(update market.ClusterUpdate, snap feature.Snapshot) {
	r.write(SignalRecord{
		Type:     "cluster",
		Ts:       update.Signal.Ts,
		Reason:   update.Signal.Reason(),
		Side:     int(update.Signal.Side),
		Strength: update.Signal.Strength,
		Mid:      snap.Mid,
		Status:   update.Status.String(),
		NetFlow:  update.NetFlow,
	})
}

func (r *SignalRecorder) write(rec SignalRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(rec)
}

// Close flushes and closes the file handle.
func (r *SignalRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
