package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// indexKey is the hash holding the most recently published index, with fields
// "price" and "ts" (Unix millisecond timestamp).
const indexKey = "priceindex:latest"

// IndexCache stores the latest published global price index in Redis. It is
// a best-effort mirror for status reporting, not a source of truth; every
// /global-price response is computed fresh.
type IndexCache struct {
	rdb *redis.Client
}

// NewIndexCache creates an IndexCache backed by the given Client.
func NewIndexCache(c *Client) *IndexCache {
	return &IndexCache{rdb: c.Underlying()}
}

// SetIndex stores the index's price and timestamp.
func (ic *IndexCache) SetIndex(ctx context.Context, idx domain.GlobalPriceIndex) error {
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(idx.Price, 'f', -1, 64),
		"ts":    strconv.FormatInt(idx.Timestamp.UnixMilli(), 10),
	}
	if err := ic.rdb.HSet(ctx, indexKey, fields).Err(); err != nil {
		return fmt.Errorf("redis: set index: %w", err)
	}
	return nil
}

// GetIndex retrieves the latest stored price and its timestamp. It returns
// domain.ErrNotFound when nothing has been published yet.
func (ic *IndexCache) GetIndex(ctx context.Context) (float64, time.Time, error) {
	vals, err := ic.rdb.HGetAll(ctx, indexKey).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get index: %w", err)
	}
	if len(vals) == 0 {
		return 0, time.Time{}, domain.ErrNotFound
	}

	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price: %w", err)
	}

	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	tsMilli, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse ts: %w", err)
	}

	return price, time.UnixMilli(tsMilli), nil
}
