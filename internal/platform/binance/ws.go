package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a control message to the peer.
	writeWait = 10 * time.Second

	// pingRetryDelay is the gap between attempts of one bounded-retry
	// control write.
	pingRetryDelay = 100 * time.Millisecond
)

// run is the session supervisor: connect, stream until the connection dies,
// wait out the backoff, repeat. Reconnection is unbounded; the session only
// stops when ctx is cancelled. The backoff delay doubles after every failed
// round, capped at MaxReconnectDelay, and resets to its initial value only
// on a successful dial.
func (c *Client) run(ctx context.Context) {
	delay := c.cfg.InitialReconnectDelay

	for {
		if ctx.Err() != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, c.cfg.WsURL, nil)
		if err != nil {
			c.logger.WarnContext(ctx, "websocket connect failed",
				slog.String("url", c.cfg.WsURL),
				slog.String("error", err.Error()),
			)
		} else {
			delay = c.cfg.InitialReconnectDelay
			c.logger.InfoContext(ctx, "depth stream connected",
				slog.String("url", c.cfg.WsURL),
			)

			c.stream(ctx, conn)
			conn.Close()

			if ctx.Err() != nil {
				return
			}
		}

		c.logger.InfoContext(ctx, "reconnecting to depth stream",
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// stream reads frames from an established connection until it fails, the
// keepalive gives up on it, or ctx is cancelled. Protocol pings are answered
// with bounded-retry pongs; exhausting the retries ends the stream so the
// supervisor reconnects.
func (c *Client) stream(ctx context.Context, conn *websocket.Conn) {
	var lastPong atomic.Int64
	lastPong.Store(time.Now().UnixNano())

	conn.SetPongHandler(func(string) error {
		lastPong.Store(time.Now().UnixNano())
		return nil
	})
	conn.SetPingHandler(func(appData string) error {
		return c.writeControl(conn, websocket.PongMessage, []byte(appData))
	})

	// The keepalive goroutine unsticks a dead connection by closing it,
	// which fails the blocked ReadMessage below.
	streamDone := make(chan struct{})
	defer close(streamDone)
	go c.keepalive(ctx, conn, &lastPong, streamDone)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.WarnContext(ctx, "depth stream read failed",
					slog.String("error", err.Error()),
				)
			}
			return
		}
		c.handleFrame(data)
	}
}

// keepalive pings the peer every PingInterval and forces a reconnect when no
// pong has been seen within twice that interval.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, lastPong *atomic.Int64, streamDone <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-streamDone:
			return
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			sincePong := time.Since(time.Unix(0, lastPong.Load()))
			if sincePong > 2*c.cfg.PingInterval {
				c.logger.Warn("no pong within keepalive window, closing connection",
					slog.Duration("since_last_pong", sincePong),
				)
				conn.Close()
				return
			}

			if err := c.writeControl(conn, websocket.PingMessage, nil); err != nil {
				c.logger.Warn("keepalive ping failed, closing connection",
					slog.String("error", err.Error()),
				)
				conn.Close()
				return
			}
		}
	}
}

// writeControl writes one control message with the configured retry budget.
func (c *Client) writeControl(conn *websocket.Conn, messageType int, payload []byte) error {
	var err error
	for attempt := 1; attempt <= c.cfg.PingRetryCount; attempt++ {
		err = conn.WriteControl(messageType, payload, time.Now().Add(writeWait))
		if err == nil {
			return nil
		}
		if attempt < c.cfg.PingRetryCount {
			time.Sleep(pingRetryDelay)
		}
	}
	return fmt.Errorf("control write failed after %d attempts: %w", c.cfg.PingRetryCount, err)
}

// handleFrame decodes one data frame and merges it into the shared book.
// Malformed frames and frames missing either side are dropped silently.
// Update IDs are decoded but not reconciled against the snapshot, so a delta
// dropped by the exchange between the REST snapshot and the first processed
// frame goes unnoticed; the book converges again on subsequent full-level
// updates. Known limitation.
func (c *Client) handleFrame(data []byte) {
	var update depthUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}
	if len(update.Bids) == 0 || len(update.Asks) == 0 {
		return
	}

	prevBid, prevAsk := c.book.BestPrices()
	c.book.ApplyUpdate(update.Bids, update.Asks, time.Now())
	newBid, newAsk := c.book.BestPrices()

	if newBid != prevBid || newAsk != prevAsk {
		c.logger.Debug("top of book moved",
			slog.Float64("best_bid", newBid),
			slog.Float64("best_ask", newAsk),
		)
	}
}
