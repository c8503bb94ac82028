package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
)

// Ensure Fake implements application.QuoteProvider.
var _ application.QuoteProvider = (*Fake)(nil)

type Fake struct {
	price decimal.Decimal
}

func NewFake(price float64) *Fake { return &Fake{price: decimal.NewFromFloat(price)} }

func (f *Fake) Get(_ context.Context, symbol domain.Symbol) (domain.Quote, error) {
	now := time.Now().UTC()
	return domain.Quote{
		Symbol:           symbol,
		Price:            f.price,
		Change:           decimal.Zero,
		ChangePercent:    decimal.Zero,
		PreviousClose:    f.price,
		Volume:           1,
		Open:             f.price,
		High:             f.price,
		Low:              f.price,
		LatestTradingDay: now.Truncate(24 * time.Hour),
		FetchedAt:        now,
	}, nil
}
