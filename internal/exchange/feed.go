// Package exchange hosts market data connectors that normalize venue
// events into ticks.
package exchange

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tapebot-go/internal/config"
	"tapebot-go/internal/market"
	"tapebot-go/internal/metrics"
)

const (
	// ProviderStub emits a synthetic random walk (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live quotes and trades from Binance public websockets.
	ProviderBinance = "binance"
)

// Feed represents a pluggable market data stream for one symbol.
type Feed struct {
	provider string
	symbol   string
	wsURL    string
	log      zerolog.Logger
}

// NewFeed constructs a feed backed by the configured provider.
func NewFeed(cfg config.Exchange, log zerolog.Logger) *Feed {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderStub
	}
	return &Feed{
		provider: provider,
		symbol:   strings.ToLower(strings.TrimSpace(cfg.Symbol)),
		wsURL:    cfg.WSURL,
		log:      log,
	}
}

// Symbol returns the normalized symbol this feed tracks.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes ticks onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- market.Tick) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- market.Tick) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	px := 100.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			preMid := px
			delta := (rng.Float64() - 0.5) * 0.1
			px += delta
			side := market.Buy
			if delta < 0 {
				side = market.Sell
			}
			tick := market.Tick{
				Ts:          float64(now.UnixNano()) / 1e9,
				Bid:         px - 0.01,
				Ask:         px + 0.01,
				LastPrice:   px,
				LastSize:    0.5 + rng.Float64(),
				LastSide:    side,
				PreTradeMid: preMid,
			}
			select {
			case out <- tick:
				metrics.TicksTotal.WithLabelValues(f.symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
