package index

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/priceindex/internal/domain"
	"github.com/alanyoungcy/priceindex/internal/exchange"
)

// fakeExchange serves a fixed two-sided book, or fails.
type fakeExchange struct {
	name  string
	bid   float64
	ask   float64
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeExchange) Name() string { return f.name }

func (f *fakeExchange) FetchOrderBook(ctx context.Context) (domain.OrderBook, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.OrderBook{}, ctx.Err()
		}
	}
	if f.err != nil {
		return domain.OrderBook{}, f.err
	}
	return domain.OrderBook{
		Bids:      []domain.Order{{Price: f.bid, Quantity: 1}},
		Asks:      []domain.Order{{Price: f.ask, Quantity: 1}},
		Timestamp: time.Now(),
	}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(exchanges ...exchange.Exchange) *Aggregator {
	return New(exchanges, 300.0, discardLogger())
}

func TestAggregator_GlobalPrice(t *testing.T) {
	agg := newAggregator(
		&fakeExchange{name: "Binance", bid: 50000, ask: 50001},
		&fakeExchange{name: "Kraken", bid: 50100, ask: 50101},
		&fakeExchange{name: "Huobi", bid: 50200, ask: 50201},
	)

	idx, err := agg.GlobalPrice(context.Background())
	require.NoError(t, err)

	// All observations are fresh, so the index is the plain mean of the
	// three mid-prices.
	assert.InDelta(t, 50100.5, idx.Price, 0.01)
	assert.Len(t, idx.ExchangePrices, 3)
	assert.WithinDuration(t, time.Now(), idx.Timestamp, time.Second)
}

func TestAggregator_ToleratesPartialFailure(t *testing.T) {
	failing := &fakeExchange{name: "Kraken", err: &domain.ExchangeError{Exchange: "Kraken", Msg: "down"}}
	crossed := &fakeExchange{name: "Huobi", bid: 50001, ask: 50000}
	agg := newAggregator(
		&fakeExchange{name: "Binance", bid: 50000, ask: 50001},
		failing,
		crossed,
	)

	idx, err := agg.GlobalPrice(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 50000.5, idx.Price, 0.01)
	require.Len(t, idx.ExchangePrices, 1)
	assert.Equal(t, "Binance", idx.ExchangePrices[0].Exchange)
}

func TestAggregator_NoDataFromAnyExchange(t *testing.T) {
	agg := newAggregator(
		&fakeExchange{name: "Binance", err: &domain.ExchangeError{Exchange: "Binance", Msg: "down"}},
		&fakeExchange{name: "Kraken", err: &domain.ExchangeError{Exchange: "Kraken", Msg: "down"}},
	)

	_, err := agg.GlobalPrice(context.Background())
	require.ErrorIs(t, err, domain.ErrNoPriceData)
}

func TestAggregator_FanOutIsConcurrentJoin(t *testing.T) {
	// Three exchanges each sleeping 50ms: a sequential scan would take
	// ~150ms, the concurrent join ~50ms.
	exchanges := []exchange.Exchange{
		&fakeExchange{name: "Binance", bid: 50000, ask: 50001, delay: 50 * time.Millisecond},
		&fakeExchange{name: "Kraken", bid: 50000, ask: 50001, delay: 50 * time.Millisecond},
		&fakeExchange{name: "Huobi", bid: 50000, ask: 50001, delay: 50 * time.Millisecond},
	}
	agg := newAggregator(exchanges...)

	start := time.Now()
	idx, err := agg.GlobalPrice(context.Background())
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Len(t, idx.ExchangePrices, 3)
	assert.Less(t, elapsed, 120*time.Millisecond, "calls should overlap")
}

func TestAggregator_EveryExchangeCalledOncePerRound(t *testing.T) {
	a := &fakeExchange{name: "Binance", bid: 50000, ask: 50001}
	b := &fakeExchange{name: "Kraken", err: &domain.ExchangeError{Exchange: "Kraken", Msg: "down"}}
	agg := newAggregator(a, b)

	_, err := agg.GlobalPrice(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestAggregator_Exchanges(t *testing.T) {
	agg := newAggregator(
		&fakeExchange{name: "Binance"},
		&fakeExchange{name: "Kraken"},
	)

	assert.Equal(t, []string{"Binance", "Kraken"}, agg.Exchanges())
}
