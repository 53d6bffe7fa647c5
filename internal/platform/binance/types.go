package binance

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/alanyoungcy/priceindex/internal/domain"
)

// levels decodes Binance's [price, quantity] string-pair arrays into domain
// orders.
type levels []domain.Order

func (ls *levels) UnmarshalJSON(data []byte) error {
	var raw [][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make([]domain.Order, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			return fmt.Errorf("binance: level has %d fields, want 2", len(pair))
		}
		price, err := strconv.ParseFloat(pair[0], 64)
		if err != nil {
			return fmt.Errorf("binance: parse price %q: %w", pair[0], err)
		}
		qty, err := strconv.ParseFloat(pair[1], 64)
		if err != nil {
			return fmt.Errorf("binance: parse quantity %q: %w", pair[1], err)
		}
		out = append(out, domain.Order{Price: price, Quantity: qty})
	}

	*ls = out
	return nil
}

// depthSnapshot is the REST depth endpoint response.
type depthSnapshot struct {
	LastUpdateID int64  `json:"lastUpdateId"`
	Bids         levels `json:"bids"`
	Asks         levels `json:"asks"`
}

// depthUpdate is one incremental frame from the <symbol>@depth stream. The
// event/symbol tags and update IDs are decoded but not validated by the merge
// path.
type depthUpdate struct {
	Event         string `json:"e"`
	EventTime     int64  `json:"E"`
	Symbol        string `json:"s"`
	FirstUpdateID int64  `json:"U"`
	FinalUpdateID int64  `json:"u"`
	Bids          levels `json:"b"`
	Asks          levels `json:"a"`
}
