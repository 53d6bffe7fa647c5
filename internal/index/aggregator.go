// Package index computes the global price index by fanning out to every
// registered exchange and combining their mid-prices with time-decay
// weighting.
package index

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/priceindex/internal/domain"
	"github.com/alanyoungcy/priceindex/internal/exchange"
)

// Aggregator fans out concurrently to a homogeneous set of exchange
// capabilities. It tolerates individual failures; an exchange that errors
// simply contributes nothing to that round.
type Aggregator struct {
	exchanges   []exchange.Exchange
	decayFactor float64
	logger      *slog.Logger
}

// New creates an Aggregator over the given exchanges. decayFactor is the
// weighting time constant in seconds.
func New(exchanges []exchange.Exchange, decayFactor float64, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		exchanges:   exchanges,
		decayFactor: decayFactor,
		logger:      logger.With(slog.String("component", "aggregator")),
	}
}

// Exchanges returns the names of the registered exchanges.
func (a *Aggregator) Exchanges() []string {
	names := make([]string, 0, len(a.exchanges))
	for _, ex := range a.exchanges {
		names = append(names, ex.Name())
	}
	return names
}

// GlobalPrice queries every exchange concurrently, waits for all of them (a
// join, not a race; there is no per-exchange timeout, only the caller's ctx
// deadline), and combines the successful observations. It returns
// domain.ErrNoPriceData when every exchange failed in this round; a numeric
// zero price is never fabricated for that case.
func (a *Aggregator) GlobalPrice(ctx context.Context) (domain.GlobalPriceIndex, error) {
	var (
		mu     sync.Mutex
		prices []domain.ExchangePrice
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, ex := range a.exchanges {
		g.Go(func() error {
			price, err := exchange.MidPrice(ctx, ex)
			if err != nil {
				// Per-request failures are absorbed here; the caller only
				// ever sees "no data" when the whole round comes up empty.
				a.logger.WarnContext(ctx, "exchange contributed no price",
					slog.String("exchange", ex.Name()),
					slog.String("error", err.Error()),
				)
				return nil
			}

			mu.Lock()
			prices = append(prices, price)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors

	if len(prices) == 0 {
		return domain.GlobalPriceIndex{}, domain.ErrNoPriceData
	}

	return domain.NewGlobalPriceIndex(prices, a.decayFactor, time.Now()), nil
}
