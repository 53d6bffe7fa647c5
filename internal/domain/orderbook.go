package domain

import (
	"math"
	"time"
)

// Order is a single price level: the price and the quantity resting at it.
// Stored books never contain levels with a non-positive quantity; a zero
// quantity on the wire means "delete this level".
type Order struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a two-sided book for one instrument. Bids are sorted by price
// descending, asks ascending, with at most one entry per price on each side.
type OrderBook struct {
	Bids      []Order
	Asks      []Order
	Timestamp time.Time
}

// MidPrice computes the midpoint between the best bid and the best ask,
// rounded to 2 decimal places. It reports false when either side is empty,
// when the best price on either side is non-positive, or when the book is
// crossed or locked (best ask <= best bid). A crossed book is invalid input,
// not zero-spread data.
func (b OrderBook) MidPrice() (float64, bool) {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0, false
	}

	bestBid := b.Bids[0].Price
	if bestBid <= 0 {
		return 0, false
	}

	bestAsk := b.Asks[0].Price
	if bestAsk <= 0 {
		return 0, false
	}

	if bestAsk <= bestBid {
		return 0, false
	}

	mid := (bestBid + bestAsk) / 2
	return math.Round(mid*100) / 100, true
}
