// Package capture persists the normalized tick stream as JSON lines so a
// session can be replayed offline.
package capture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"tapebot-go/internal/market"
)

type tickRow struct {
	Ts          float64 `json:"ts"`
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	LastPrice   float64 `json:"last_price"`
	LastSize    float64 `json:"last_size"`
	LastSide    int     `json:"last_side"`
	PreTradeMid float64 `json:"pre_trade_mid"`
}

func toRow(tick market.Tick) tickRow {
	return tickRow{
		Ts:          tick.Ts,
		Bid:         tick.Bid,
		Ask:         tick.Ask,
		LastPrice:   tick.LastPrice,
		LastSize:    tick.LastSize,
		LastSide:    int(tick.LastSide),
		PreTradeMid: tick.PreTradeMid,
	}
}

func fromRow(row tickRow) market.Tick {
	return market.Tick{
		Ts:          row.Ts,
		Bid:         row.Bid,
		Ask:         row.Ask,
		LastPrice:   row.LastPrice,
		LastSize:    row.LastSize,
		LastSide:    market.Side(row.LastSide),
		PreTradeMid: row.PreTradeMid,
	}
}

// TickWriter appends ticks to a JSONL file.
type TickWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewTickWriter creates/opens the target file and returns a writer.
func NewTickWriter(path string) (*TickWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &TickWriter{file: file, enc: json.NewEncoder(file)}, nil
}

// Append writes a single tick.
func (w *TickWriter) Append(tick market.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.enc.Encode(toRow(tick))
}

// Close flushes and closes the file handle.
func (w *TickWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// ReadTicks streams a capture file, invoking fn per tick in file order.
// Blank lines are skipped; a malformed line aborts with its line number.
func ReadTicks(path string, fn func(market.Tick) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var row tickRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return fmt.Errorf("capture line %d: %w", line, err)
		}
		if err := fn(fromRow(row)); err != nil {
			return err
		}
	}
	return scanner.Err()
}
