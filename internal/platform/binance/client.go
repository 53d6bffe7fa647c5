// Package binance implements the streaming exchange client. It keeps a live
// in-memory order book, seeded from a REST depth snapshot and maintained by a
// supervised WebSocket session with reconnect and keepalive handling.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
	"github.com/alanyoungcy/priceindex/internal/exchange"
)

// Config holds the Binance endpoints and session tuning.
type Config struct {
	WsURL   string
	RestURL string

	InitialReconnectDelay time.Duration
	MaxReconnectDelay     time.Duration
	PingInterval          time.Duration
	PingRetryCount        int
}

// Client is the Binance exchange client. FetchOrderBook reads the live book;
// the network work happens in the background session started by NewClient.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	book       *book
}

// NewClient fetches the initial depth snapshot, populates the shared book,
// and starts the supervised streaming session. The session runs until ctx is
// cancelled; it is never joined and its failures never surface here, they
// only affect the staleness of the book. NewClient fails only when the
// initial snapshot cannot be fetched, in which case the exchange should not
// be registered.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("exchange", "binance")),
		book:   &book{},
	}

	snap, err := c.fetchSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: initial snapshot: %w", err)
	}
	c.book.Replace(snap.Bids, snap.Asks, time.Now())

	c.logger.InfoContext(ctx, "initial order book loaded",
		slog.Int("bids", len(snap.Bids)),
		slog.Int("asks", len(snap.Asks)),
		slog.Int64("last_update_id", snap.LastUpdateID),
	)

	go c.run(ctx)

	return c, nil
}

// Name returns the static exchange identifier.
func (c *Client) Name() string {
	return "Binance"
}

// FetchOrderBook returns a snapshot copy of the live book. It never blocks on
// the session beyond the book's read lock.
func (c *Client) FetchOrderBook(ctx context.Context) (domain.OrderBook, error) {
	return c.book.Snapshot(), nil
}

// fetchSnapshot performs one REST depth request.
func (c *Client) fetchSnapshot(ctx context.Context) (depthSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.RestURL, nil)
	if err != nil {
		return depthSnapshot{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return depthSnapshot{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return depthSnapshot{}, &domain.ExchangeError{
			Exchange: c.Name(),
			Msg:      fmt.Sprintf("depth snapshot returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return depthSnapshot{}, fmt.Errorf("read body: %w", err)
	}

	var snap depthSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return depthSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	return snap, nil
}

// Compile-time interface check.
var _ exchange.Exchange = (*Client)(nil)
