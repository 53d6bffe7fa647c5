package binance

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// priceEpsilon is the tolerance used when matching an incoming delta against
// an existing price level.
const priceEpsilon = 1e-9

// book is the shared order book owned by the streaming session. The session
// goroutine is the only writer; the aggregator reads consistent snapshots
// through Snapshot. Merges are prepared outside the lock and swapped in whole,
// so readers never observe a half-merged side.
type book struct {
	mu        sync.RWMutex
	bids      []domain.Order
	asks      []domain.Order
	timestamp time.Time
}

// Replace installs a full snapshot, discarding any previous state.
func (b *book) Replace(bids, asks []domain.Order, ts time.Time) {
	b.mu.Lock()
	b.bids = bids
	b.asks = asks
	b.timestamp = ts
	b.mu.Unlock()
}

// ApplyUpdate folds one batch of incremental deltas into the book and
// refreshes its timestamp.
func (b *book) ApplyUpdate(bids, asks []domain.Order, ts time.Time) {
	b.mu.RLock()
	curBids, curAsks := b.bids, b.asks
	b.mu.RUnlock()

	newBids := mergeLevels(curBids, bids, true)
	newAsks := mergeLevels(curAsks, asks, false)

	b.mu.Lock()
	b.bids = newBids
	b.asks = newAsks
	b.timestamp = ts
	b.mu.Unlock()
}

// Snapshot returns a deep copy of the current book.
func (b *book) Snapshot() domain.OrderBook {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bids := make([]domain.Order, len(b.bids))
	copy(bids, b.bids)
	asks := make([]domain.Order, len(b.asks))
	copy(asks, b.asks)

	return domain.OrderBook{
		Bids:      bids,
		Asks:      asks,
		Timestamp: b.timestamp,
	}
}

// BestPrices returns the current top-of-book prices, zero when a side is
// empty. Used for change logging only.
func (b *book) BestPrices() (bestBid, bestAsk float64) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) > 0 {
		bestBid = b.bids[0].Price
	}
	if len(b.asks) > 0 {
		bestAsk = b.asks[0].Price
	}
	return bestBid, bestAsk
}

// mergeLevels applies a batch of deltas to one side of the book and returns
// the new sorted side. The input slice is not mutated.
//
// Per delta: a positive quantity upserts the level, a zero quantity deletes
// it (no-op when absent). Within a batch the last delta for a price wins.
// The whole operation is idempotent for repeated identical batches. Sequence
// numbering on the upstream stream is not consulted, so a dropped frame is
// not detected here.
func mergeLevels(existing, updates []domain.Order, descending bool) []domain.Order {
	merged := make([]domain.Order, len(existing))
	copy(merged, existing)

	for _, u := range updates {
		idx := -1
		for i, lvl := range merged {
			if math.Abs(lvl.Price-u.Price) < priceEpsilon {
				idx = i
				break
			}
		}

		switch {
		case idx >= 0 && u.Quantity > 0:
			merged[idx].Quantity = u.Quantity
		case idx >= 0:
			merged = append(merged[:idx], merged[idx+1:]...)
		case u.Quantity > 0:
			merged = append(merged, domain.Order{Price: u.Price, Quantity: u.Quantity})
		}
	}

	// NaN-safe comparator: incomparable prices rank equal instead of
	// corrupting the sort.
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].Price, merged[j].Price
		if math.IsNaN(a) || math.IsNaN(b) {
			return false
		}
		if descending {
			return a > b
		}
		return a < b
	})

	return merged
}
