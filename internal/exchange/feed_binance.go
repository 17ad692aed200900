package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tapebot-go/internal/market"
	"tapebot-go/internal/metrics"
)

type binanceEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type binanceBookTicker struct {
	BidPrice string `json:"b"`
	AskPrice string `json:"a"`
}

type binanceTrade struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

func (f *Feed) runBinance(ctx context.Context, out chan<- market.Tick) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	url := f.wsURL
	if url == "" {
		url = fmt.Sprintf("wss://stream.binance.com:9443/stream?streams=%s@bookTicker/%s@trade",
			f.symbol, f.symbol)
	}

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- market.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.symbol).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	// Quotes reset per connection; trades that arrive before the first
	// book update have no pre-trade mid and are dropped.
	var bid, ask float64
	haveQuote := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}

		switch streamKind(env.Stream) {
		case "bookTicker":
			var book binanceBookTicker
			if err := json.Unmarshal(env.Data, &book); err != nil {
				f.log.Warn().Err(err).Msg("failed to decode book ticker")
				continue
			}
			newBid, errB := strconv.ParseFloat(book.BidPrice, 64)
			newAsk, errA := strconv.ParseFloat(book.AskPrice, 64)
			if errB != nil || errA != nil || newBid <= 0 || newAsk <= 0 {
				f.log.Warn().Str("bid", book.BidPrice).Str("ask", book.AskPrice).Msg("invalid quote from binance")
				continue
			}
			bid, ask = newBid, newAsk
			haveQuote = true

		case "trade":
			if !haveQuote {
				continue
			}
			var trade binanceTrade
			if err := json.Unmarshal(env.Data, &trade); err != nil {
				f.log.Warn().Err(err).Msg("failed to decode trade")
				continue
			}
			px, err := strconv.ParseFloat(trade.Price, 64)
			if err != nil {
				f.log.Warn().Err(err).Msg("invalid price from binance")
				continue
			}
			qty, err := strconv.ParseFloat(trade.Quantity, 64)
			if err != nil {
				f.log.Warn().Err(err).Msg("invalid quantity from binance")
				continue
			}
			side := market.Buy
			if trade.IsBuyerMaker {
				side = market.Sell
			}
			tick := market.Tick{
				Ts:          float64(trade.TradeTime) / 1000.0,
				Bid:         bid,
				Ask:         ask,
				LastPrice:   px,
				LastSize:    qty,
				LastSide:    side,
				PreTradeMid: (bid + ask) * 0.5,
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

// streamKind extracts the suffix after "@" from a combined-stream name.
func streamKind(stream string) string {
	idx := strings.LastIndex(stream, "@")
	if idx < 0 {
		return stream
	}
	return stream[idx+1:]
}
