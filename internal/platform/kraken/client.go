// Package kraken implements the polling exchange client for the Kraken depth
// endpoint. Every FetchOrderBook call is one fresh REST request; the client
// itself holds no book state.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/priceindex/internal/domain"
	"github.com/alanyoungcy/priceindex/internal/exchange"
)

const (
	pair = "XBTUSDT"

	probeDepth = 1
	fetchDepth = 100

	requestTimeout = 5 * time.Second
)

// Client is the Kraken REST client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient builds the client and probes the depth endpoint once. Any probe
// failure (transport, decode, or an error reported inside the Kraken
// envelope) means the exchange is broken at startup and must not be
// registered, so NewClient returns the error.
func NewClient(ctx context.Context, depthURL string) (*Client, error) {
	c := &Client{
		url: depthURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}

	if _, err := c.fetchDepth(ctx, probeDepth); err != nil {
		return nil, fmt.Errorf("kraken: liveness probe: %w", err)
	}

	return c, nil
}

// Name returns the static exchange identifier.
func (c *Client) Name() string {
	return "Kraken"
}

// FetchOrderBook fetches and decodes one depth snapshot. A single failed
// request is one failed call; there is no retry here.
func (c *Client) FetchOrderBook(ctx context.Context) (domain.OrderBook, error) {
	return c.fetchDepth(ctx, fetchDepth)
}

func (c *Client) fetchDepth(ctx context.Context, count int) (domain.OrderBook, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("kraken: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("kraken: depth request: %w", err)
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
		return domain.OrderBook{}, fmt.Errorf("kraken: read body: %w", err)
	}

	var envelope krakenResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kraken: decode depth: %w", err)
	}

	if len(envelope.Error) > 0 {
		return domain.OrderBook{}, &domain.ExchangeError{
			Exchange: c.Name(),
			Msg:      strings.Join(envelope.Error, "; "),
		}
	}

	// Kraken supplies per-level timestamps but no book-level instant usable
	// for decay weighting; stamp with wall-clock time.
	return domain.OrderBook{
		Bids:      envelope.Result.XBTUSDT.Bids,
		Asks:      envelope.Result.XBTUSDT.Asks,
		Timestamp: time.Now(),
	}, nil
}

// krakenResponse is the Kraken depth envelope: a list of error strings plus
// the order book keyed by pair name.
type krakenResponse struct {
	Error  []string `json:"error"`
	Result struct {
		XBTUSDT krakenBook `json:"XBTUSDT"`
	} `json:"result"`
}

type krakenBook struct {
	Bids krakenLevels `json:"bids"`
	Asks krakenLevels `json:"asks"`
}

// krakenLevels decodes Kraken's [price, volume, timestamp] triples, where
// price and volume arrive as strings and the trailing timestamp is discarded.
type krakenLevels []domain.Order

func (ls *krakenLevels) UnmarshalJSON(data []byte) error {
	var raw [][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]domain.Order, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			return fmt.Errorf("kraken: level has %d fields, want at least 2", len(entry))
		}

		var priceStr, volumeStr string
		if err := json.Unmarshal(entry[0], &priceStr); err != nil {
			return fmt.Errorf("kraken: level price must be a string: %w", err)
		}
		if err := json.Unmarshal(entry[1], &volumeStr); err != nil {
			return fmt.Errorf("kraken: level volume must be a string: %w", err)
		}

		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil {
			return fmt.Errorf("kraken: parse price %q: %w", priceStr, err)
		}
		volume, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			return fmt.Errorf("kraken: parse volume %q: %w", volumeStr, err)
		}

		out = append(out, domain.Order{Price: price, Quantity: volume})
	}

	*ls = out
	return nil
}

// Compile-time interface check.
var _ exchange.Exchange = (*Client)(nil)
