package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decayFactor = 300.0

func TestNewGlobalPriceIndex_TimeDecayWeighting(t *testing.T) {
	now := time.Now()
	prices := []ExchangePrice{
		{Exchange: "Binance", MidPrice: 50000, Timestamp: now},
		{Exchange: "Kraken", MidPrice: 51000, Timestamp: now.Add(-300 * time.Second)},
		{Exchange: "Huobi", MidPrice: 52000, Timestamp: now.Add(-600 * time.Second)},
	}

	idx := NewGlobalPriceIndex(prices, decayFactor, now)

	// weights ~ {1.0, 0.368, 0.135}
	assert.InDelta(t, 50424.79, idx.Price, 1.0)
	assert.Equal(t, now, idx.Timestamp)
	assert.Len(t, idx.ExchangePrices, 3)
}

func TestNewGlobalPriceIndex_EqualTimestampsIsPlainMean(t *testing.T) {
	now := time.Now()
	prices := []ExchangePrice{
		{Exchange: "Binance", MidPrice: 50000, Timestamp: now},
		{Exchange: "Kraken", MidPrice: 51000, Timestamp: now},
		{Exchange: "Huobi", MidPrice: 52000, Timestamp: now},
	}

	idx := NewGlobalPriceIndex(prices, decayFactor, now)

	assert.InDelta(t, 51000.0, idx.Price, 0.01)
}

func TestNewGlobalPriceIndex_SinglePricePassesThrough(t *testing.T) {
	now := time.Now()
	prices := []ExchangePrice{
		{Exchange: "Kraken", MidPrice: 50123.45, Timestamp: now.Add(-90 * time.Second)},
	}

	idx := NewGlobalPriceIndex(prices, decayFactor, now)

	assert.InDelta(t, 50123.45, idx.Price, 0.01)
}

func TestNewGlobalPriceIndex_FiltersNonPositivePrices(t *testing.T) {
	now := time.Now()
	prices := []ExchangePrice{
		{Exchange: "Binance", MidPrice: -50000, Timestamp: now},
		{Exchange: "Kraken", MidPrice: 0, Timestamp: now},
		{Exchange: "Huobi", MidPrice: 52000, Timestamp: now},
	}

	idx := NewGlobalPriceIndex(prices, decayFactor, now)

	assert.InDelta(t, 52000.0, idx.Price, 0.01)
	// Filtered observations stay in the response.
	assert.Len(t, idx.ExchangePrices, 3)
}

func TestNewGlobalPriceIndex_EmptyInput(t *testing.T) {
	now := time.Now()

	idx := NewGlobalPriceIndex(nil, decayFactor, now)

	assert.Zero(t, idx.Price)
	assert.Empty(t, idx.ExchangePrices)
}

func TestNewGlobalPriceIndex_FutureTimestampClamped(t *testing.T) {
	now := time.Now()
	prices := []ExchangePrice{
		{Exchange: "Binance", MidPrice: 50000, Timestamp: now.Add(2 * time.Minute)},
		{Exchange: "Kraken", MidPrice: 51000, Timestamp: now},
	}

	idx := NewGlobalPriceIndex(prices, decayFactor, now)

	// A clock-skewed future price weighs the same as a fresh one.
	assert.InDelta(t, 50500.0, idx.Price, 0.01)
}

func TestGlobalPriceIndex_WireFormat(t *testing.T) {
	ts := time.UnixMilli(1735689600123)
	idx := GlobalPriceIndex{
		Price:     50424.79,
		Timestamp: ts,
		ExchangePrices: []ExchangePrice{
			{Exchange: "Binance", MidPrice: 50000.25, Timestamp: ts},
		},
	}

	data, err := json.Marshal(idx)
	require.NoError(t, err)

	// Timestamps encode as integer Unix milliseconds.
	assert.JSONEq(t, `{
		"price": 50424.79,
		"timestamp": 1735689600123,
		"exchange_prices": [
			{"exchange": "Binance", "mid_price": 50000.25, "timestamp": 1735689600123}
		]
	}`, string(data))

	var back GlobalPriceIndex
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, idx.Price, back.Price)
	assert.Equal(t, ts.UnixMilli(), back.Timestamp.UnixMilli())
	require.Len(t, back.ExchangePrices, 1)
	assert.Equal(t, "Binance", back.ExchangePrices[0].Exchange)
}

func TestGlobalPriceIndex_WireFormat_EmptyPrices(t *testing.T) {
	data, err := json.Marshal(GlobalPriceIndex{Timestamp: time.UnixMilli(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 0, "timestamp": 0, "exchange_prices": []}`, string(data))
}
