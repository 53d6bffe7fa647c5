// Package huobi implements the polling exchange client for the Huobi market
// depth endpoint. Every FetchOrderBook call is one fresh REST request; the
// client itself holds no book state.
package huobi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
	"github.com/alanyoungcy/priceindex/internal/exchange"
)

const (
	symbol    = "btcusdt"
	depthType = "step0"

	// Valid depth values: 5, 10, 20, 50, 100.
	probeDepth = 5
	fetchDepth = 20

	requestTimeout = 5 * time.Second
)

// Client is the Huobi REST client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds the client and probes the depth endpoint once. Any probe
// failure (transport, decode, or a non-"ok" status in the Huobi envelope)
// means the exchange is broken at startup and must not be registered, so
// NewClient returns the error.
func NewClient(ctx context.Context, depthURL string) (*Client, error) {
	c := &Client{
		url: depthURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}

	if _, err := c.fetchDepth(ctx, probeDepth); err != nil {
		return nil, fmt.Errorf("huobi: liveness probe: %w", err)
	}

	return c, nil
}

// Name returns the static exchange identifier.
func (c *Client) Name() string {
	return "Huobi"
}

// FetchOrderBook fetches and decodes one depth snapshot. A single failed
// request is one failed call; there is no retry here.
func (c *Client) FetchOrderBook(ctx context.Context) (domain.OrderBook, error) {
	return c.fetchDepth(ctx, fetchDepth)
}

func (c *Client) fetchDepth(ctx context.Context, depth int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", depthType)
	params.Set("depth", strconv.Itoa(depth))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("huobi: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("huobi: depth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.OrderBook{}, &domain.ExchangeError{
			Exchange: c.Name(),
			Msg:      fmt.Sprintf("depth request returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("huobi: read body: %w", err)
	}

	var envelope huobiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.OrderBook{}, fmt.Errorf("huobi: decode depth: %w", err)
	}

	if envelope.Status != "ok" {
		msg := fmt.Sprintf("status %q", envelope.Status)
		if envelope.ErrMsg != "" {
			msg = fmt.Sprintf("status %q: %s (%s)", envelope.Status, envelope.ErrMsg, envelope.ErrCode)
		}
		return domain.OrderBook{}, &domain.ExchangeError{Exchange: c.Name(), Msg: msg}
	}

	if envelope.Tick == nil {
		return domain.OrderBook{}, &domain.ExchangeError{
			Exchange: c.Name(),
			Msg:      "no order book data in response",
		}
	}

	// The envelope's ts field is the exchange's own clock; stamp with local
	// wall-clock time so decay weighting is consistent across exchanges.
	return domain.OrderBook{
		Bids:      envelope.Tick.Bids.Orders(),
		Asks:      envelope.Tick.Asks.Orders(),
		Timestamp: time.Now(),
	}, nil
}

// huobiResponse is the Huobi depth envelope.
type huobiResponse struct {
	Status  string     `json:"status"`
	ErrCode string     `json:"err-code"`
	ErrMsg  string     `json:"err-msg"`
	Ts      int64      `json:"ts"`
	Tick    *huobiBook `json:"tick"`
}

type huobiBook struct {
	Bids huobiLevels `json:"bids"`
	Asks huobiLevels `json:"asks"`
}

// huobiLevels holds Huobi's [price, volume] float pairs.
type huobiLevels [][2]float64

// Orders converts the raw pairs into domain orders.
func (ls huobiLevels) Orders() []domain.Order {
	out := make([]domain.Order, 0, len(ls))
	for _, lvl := range ls {
		out = append(out, domain.Order{Price: lvl[0], Quantity: lvl[1]})
	}
	return out
}

// Compile-time interface check.
var _ exchange.Exchange = (*Client)(nil)
