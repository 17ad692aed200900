// Package market standardizes payloads shared between data ingestion and the decision pipeline.
package market

// Side is the aggressor direction of a trade.
type Side int

const (
	// Buy marks an aggressive buyer (+1).
	Buy Side = 1
	// Sell marks an aggressive seller (-1).
	Sell Side = -1
)

// String renders the side for reasons and logs.
func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Tick models one normalized trade event enriched with the best bid/ask
// captured immediately before the trade printed.
type Tick struct {
	Ts          float64 // unix seconds
	Bid         float64
	Ask         float64
	LastPrice   float64
	LastSize    float64
	LastSide    Side
	PreTradeMid float64
}

// Mid returns the quote midpoint at the time of the trade.
func (t Tick) Mid() float64 { return (t.Bid + t.Ask) * 0.5 }

// Spread returns the quoted bid/ask spread.
func (t Tick) Spread() float64 { return t.Ask - t.Bid }

// PriceImpact is the signed distance the trade moved price in its own
// direction. Positive means the trade pushed price its way.
func (t Tick) PriceImpact() float64 {
	if t.PreTradeMid == 0 {
		return 0
	}
	return (t.LastPrice - t.PreTradeMid) * float64(t.LastSide)
}
