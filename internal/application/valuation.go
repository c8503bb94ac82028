package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger-service/internal/domain"
)

var oneHundred = decimal.NewFromInt(100)

// PositionValue is one priced (or unpriceable) line of a valuation.
type PositionValue struct {
	Symbol        domain.Symbol
	Shares        decimal.Decimal
	Price         decimal.Decimal
	Value         decimal.Decimal
	DailyChange   decimal.Decimal
	ChangePercent decimal.Decimal
	Priced        bool
}

// Valuation aggregates the priceable subset of a portfolio. Symbols whose
// quotes could not be fetched are listed in Unpriced rather than failing the
// whole valuation.
type Valuation struct {
	Positions          []PositionValue
	TotalValue         decimal.Decimal
	DailyChange        decimal.Decimal
	DailyChangePercent decimal.Decimal
	Unpriced           []domain.Symbol
}

// ValuationService prices a user's positions through the quote cache.
type ValuationService struct {
	portfolios PortfolioRepo
	cache      *QuoteCache
	log        *zap.Logger
}

func NewValuationService(portfolios PortfolioRepo, cache *QuoteCache, log *zap.Logger) *ValuationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ValuationService{portfolios: portfolios, cache: cache, log: log}
}

func (s *ValuationService) Valuate(ctx context.Context, userID string) (Valuation, error) {
	if userID == "" {
		return Valuation{}, fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	positions, err := s.portfolios.Positions(ctx, userID)
	if err != nil {
		return Valuation{}, err
	}
	v := Valuation{
		TotalValue:         decimal.Zero,
		DailyChange:        decimal.Zero,
		DailyChangePercent: decimal.Zero,
	}
	if len(positions) == 0 {
		return v, nil
	}

	symbols := make([]domain.Symbol, 0, len(positions))
	for sym := range positions {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool { return symbols[i] < symbols[j] })

	quotes := s.cache.GetOrFetch(ctx, symbols)
	for _, sym := range symbols {
		shares := positions[sym]
		q, ok := quotes[sym]
		if !ok {
			v.Unpriced = append(v.Unpriced, sym)
			v.Positions = append(v.Positions, PositionValue{Symbol: sym, Shares: shares})
			continue
		}
		value := q.Price.Mul(shares)
		pv := PositionValue{
			Symbol:        sym,
			Shares:        shares,
			Price:         q.Price,
			Value:         value,
			DailyChange:   q.Change,
			ChangePercent: q.ChangePercent,
			Priced:        true,
		}
		v.Positions = append(v.Positions, pv)
		v.TotalValue = v.TotalValue.Add(value)
		v.DailyChange = v.DailyChange.Add(q.Change.Mul(shares))
	}
	if v.TotalValue.Sign() > 0 {
		v.DailyChangePercent = v.DailyChange.DivRound(v.TotalValue, 4).Mul(oneHundred)
	}
	if len(v.Unpriced) > 0 {
		s.log.Warn("valuation.partial",
			zap.String("user_id", userID),
			zap.Int("unpriced", len(v.Unpriced)),
		)
	}
	return v, nil
}

// AddPosition adds shares of symbol to the user's portfolio, merging with an
// existing position. The symbol is verified against the quote pipeline first.
func (s *ValuationService) AddPosition(ctx context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	if err := s.checkPositionInput(userID, symbol, shares); err != nil {
		return err
	}
	if _, ok := s.cache.GetOrFetch(ctx, []domain.Symbol{symbol})[symbol]; !ok {
		return fmt.Errorf("%w: no quote for symbol %s", ErrInvalidInput, symbol)
	}
	positions, err := s.portfolios.Positions(ctx, userID)
	if err != nil {
		return err
	}
	if existing, ok := positions[symbol]; ok {
		shares = shares.Add(existing)
	}
	return s.portfolios.UpsertPosition(ctx, userID, symbol, shares)
}

// UpdateShares replaces the share count of an existing position.
func (s *ValuationService) UpdateShares(ctx context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	if err := s.checkPositionInput(userID, symbol, shares); err != nil {
		return err
	}
	positions, err := s.portfolios.Positions(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := positions[symbol]; !ok {
		return fmt.Errorf("%w: position %s", ErrNotFound, symbol)
	}
	return s.portfolios.UpsertPosition(ctx, userID, symbol, shares)
}

// RemovePosition deletes a position outright.
func (s *ValuationService) RemovePosition(ctx context.Context, userID string, symbol domain.Symbol) error {
	if userID == "" || !domain.ValidateSymbol(symbol) {
		return fmt.Errorf("%w: user %q symbol %q", ErrInvalidInput, userID, symbol)
	}
	positions, err := s.portfolios.Positions(ctx, userID)
	if err != nil {
		return err
	}
	if _, ok := positions[symbol]; !ok {
		return fmt.Errorf("%w: position %s", ErrNotFound, symbol)
	}
	return s.portfolios.DeletePosition(ctx, userID, symbol)
}

func (s *ValuationService) checkPositionInput(userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	if !domain.ValidateSymbol(symbol) {
		return fmt.Errorf("%w: symbol %q", ErrInvalidInput, symbol)
	}
	if shares.Sign() <= 0 {
		return fmt.Errorf("%w: shares must be positive", ErrInvalidInput)
	}
	return nil
}
