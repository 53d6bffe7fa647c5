// Package exchange defines the capability contract implemented by every
// exchange client.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// Exchange is the single capability the aggregator depends on. Implementations
// either return a live in-memory book (streaming exchanges) or fetch a fresh
// snapshot per call (polling exchanges).
type Exchange interface {
	// Name returns the static exchange identifier, e.g. "Binance".
	Name() string

	// FetchOrderBook returns the exchange's current view of the book.
	FetchOrderBook(ctx context.Context) (domain.OrderBook, error)
}

// MidPrice fetches the exchange's book and computes its mid-price, stamping
// the observation with the current wall-clock time.
func MidPrice(ctx context.Context, ex Exchange) (domain.ExchangePrice, error) {
	book, err := ex.FetchOrderBook(ctx)
	if err != nil {
		return domain.ExchangePrice{}, err
	}

	mid, ok := book.MidPrice()
	if !ok {
		return domain.ExchangePrice{}, &domain.InvalidPriceDataError{
			Msg: fmt.Sprintf("failed to calculate mid price for %s", ex.Name()),
		}
	}

	return domain.ExchangePrice{
		Exchange:  ex.Name(),
		MidPrice:  mid,
		Timestamp: time.Now(),
	}, nil
}
