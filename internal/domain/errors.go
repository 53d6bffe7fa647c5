package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoPriceData = errors.New("no price data available from any exchange")
	ErrNotFound    = errors.New("not found")
)

// ExchangeError is a failure reported by an exchange: a bad HTTP status or an
// error signalled inside the API's own response envelope.
type ExchangeError struct {
	Exchange string
	Msg      string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("exchange error (%s): %s", e.Exchange, e.Msg)
}

// InvalidPriceDataError indicates a book was fetched but failed mid-price
// validation, e.g. an empty side or a crossed market.
type InvalidPriceDataError struct {
	Msg string
}

func (e *InvalidPriceDataError) Error() string {
	return "invalid price data: " + e.Msg
}
