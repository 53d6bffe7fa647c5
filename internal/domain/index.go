package domain

import (
	"encoding/json"
	"math"
	"time"
)

// ExchangePrice is one exchange's mid-price observation. Timestamp is the
// instant the observation was produced and drives the time-decay weighting.
type ExchangePrice struct {
	Exchange  string
	MidPrice  float64
	Timestamp time.Time
}

// GlobalPriceIndex is the combined index over all exchange observations from
// a single aggregation round. ExchangePrices keeps every original
// observation, including ones excluded from the weighting.
type GlobalPriceIndex struct {
	Price          float64
	Timestamp      time.Time
	ExchangePrices []ExchangePrice
}

// NewGlobalPriceIndex combines the given observations into an index using
// exponential time-decay weighting: weight = exp(-age/decayFactor), with age
// clamped to zero so clock skew never produces a weight above 1. With a
// 300-second decay factor a 5-minute-old price carries ~36.8% of a fresh
// price's weight, 10 minutes ~13.5%, 20 minutes ~1.8%.
//
// Observations with a non-positive mid-price are excluded from the weighting
// but retained in ExchangePrices. When the total weight underflows to zero
// the plain arithmetic mean of the valid observations is used instead. An
// input with no valid observations produces an index with Price 0.
func NewGlobalPriceIndex(prices []ExchangePrice, decayFactor float64, now time.Time) GlobalPriceIndex {
	valid := make([]ExchangePrice, 0, len(prices))
	for _, p := range prices {
		if p.MidPrice > 0 {
			valid = append(valid, p)
		}
	}

	var price float64
	if len(valid) > 0 {
		var weightedSum, totalWeight float64
		for _, p := range valid {
			age := now.Sub(p.Timestamp).Seconds()
			if age < 0 {
				age = 0
			}
			weight := math.Exp(-age / decayFactor)
			weightedSum += p.MidPrice * weight
			totalWeight += weight
		}

		if totalWeight > 0 {
			price = weightedSum / totalWeight
		} else {
			var sum float64
			for _, p := range valid {
				sum += p.MidPrice
			}
			price = sum / float64(len(valid))
		}
	}

	return GlobalPriceIndex{
		Price:          price,
		Timestamp:      now,
		ExchangePrices: prices,
	}
}

// Wire representations. Timestamps encode as integer Unix milliseconds.

type exchangePriceJSON struct {
	Exchange  string  `json:"exchange"`
	MidPrice  float64 `json:"mid_price"`
	Timestamp int64   `json:"timestamp"`
}

// MarshalJSON encodes the observation with its timestamp as Unix milliseconds.
func (p ExchangePrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(exchangePriceJSON{
		Exchange:  p.Exchange,
		MidPrice:  p.MidPrice,
		Timestamp: p.Timestamp.UnixMilli(),
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (p *ExchangePrice) UnmarshalJSON(data []byte) error {
	var w exchangePriceJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	p.Exchange = w.Exchange
	p.MidPrice = w.MidPrice
	p.Timestamp = time.UnixMilli(w.Timestamp)
	return nil
}

type globalPriceIndexJSON struct {
	Price          float64         `json:"price"`
	Timestamp      int64           `json:"timestamp"`
	ExchangePrices []ExchangePrice `json:"exchange_prices"`
}

// MarshalJSON encodes the index with its timestamp as Unix milliseconds.
func (g GlobalPriceIndex) MarshalJSON() ([]byte, error) {
	prices := g.ExchangePrices
	if prices == nil {
		prices = []ExchangePrice{}
	}
	return json.Marshal(globalPriceIndexJSON{
		Price:          g.Price,
		Timestamp:      g.Timestamp.UnixMilli(),
		ExchangePrices: prices,
	})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (g *GlobalPriceIndex) UnmarshalJSON(data []byte) error {
	var w globalPriceIndexJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	g.Price = w.Price
	g.Timestamp = time.UnixMilli(w.Timestamp)
	g.ExchangePrices = w.ExchangePrices
	return nil
}
