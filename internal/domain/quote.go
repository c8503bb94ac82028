package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a snapshot of a ticker's price and trading statistics for the
// most recent session.
type Quote struct {
	Symbol           Symbol
	Price            decimal.Decimal
	Change           decimal.Decimal
	ChangePercent    decimal.Decimal
	PreviousClose    decimal.Decimal
	Volume           int64
	Open             decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	LatestTradingDay time.Time
	FetchedAt        time.Time
}

// Validate enforces the quote invariants. A quote that fails them must never
// be cached or served.
func (q Quote) Validate() error {
	if !ValidateSymbol(q.Symbol) {
		return fmt.Errorf("%w: symbol %q", ErrInvalidQuote, q.Symbol)
	}
	if q.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price %s", ErrInvalidQuote, q.Price)
	}
	if q.Volume <= 0 {
		return fmt.Errorf("%w: volume %d", ErrInvalidQuote, q.Volume)
	}
	if q.LatestTradingDay.IsZero() {
		return fmt.Errorf("%w: missing latest trading day", ErrInvalidQuote)
	}
	return nil
}
