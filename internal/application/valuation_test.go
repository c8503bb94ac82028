package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"finledger-service/internal/domain"
)

func valuationSetup(results map[domain.Symbol]domain.Quote) (*ValuationService, *memPortfolioRepo, *fetchCounter) {
	fc := &fetchCounter{results: results}
	cache := NewQuoteCache(fc, nil)
	repo := newMemPortfolioRepo()
	return NewValuationService(repo, cache, nil), repo, fc
}

func Test_Valuate_EmptyPortfolio(t *testing.T) {
	t.Parallel()
	svc, _, fc := valuationSetup(nil)

	v, err := svc.Valuate(context.Background(), "u1")
	require.NoError(t, err)
	require.Empty(t, v.Positions)
	require.True(t, v.TotalValue.IsZero())
	require.Empty(t, fc.requested())
}

func Test_Valuate_PricesPositions(t *testing.T) {
	t.Parallel()
	aapl := validQuote("AAPL", 200)
	aapl.Price = dec("200")
	aapl.Change = dec("2")
	msft := validQuote("MSFT", 400)
	msft.Price = dec("400")
	msft.Change = dec("-4")

	svc, repo, _ := valuationSetup(map[domain.Symbol]domain.Quote{"AAPL": aapl, "MSFT": msft})
	ctx := context.Background()
	require.NoError(t, repo.UpsertPosition(ctx, "u1", "AAPL", dec("10")))
	require.NoError(t, repo.UpsertPosition(ctx, "u1", "MSFT", dec("5")))

	v, err := svc.Valuate(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, v.Positions, 2)
	require.Empty(t, v.Unpriced)
	// 10*200 + 5*400 = 4000; daily change 10*2 + 5*(-4) = 0.
	require.True(t, v.TotalValue.Equal(dec("4000")), "got %s", v.TotalValue)
	require.True(t, v.DailyChange.IsZero(), "got %s", v.DailyChange)
}

func Test_Valuate_PartialQuotes(t *testing.T) {
	t.Parallel()
	aapl := validQuote("AAPL", 200)
	aapl.Price = dec("200")
	svc, repo, _ := valuationSetup(map[domain.Symbol]domain.Quote{"AAPL": aapl})
	ctx := context.Background()
	require.NoError(t, repo.UpsertPosition(ctx, "u1", "AAPL", dec("1")))
	require.NoError(t, repo.UpsertPosition(ctx, "u1", "DEAD", dec("3")))

	v, err := svc.Valuate(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, v.Positions, 2)
	require.Equal(t, []domain.Symbol{"DEAD"}, v.Unpriced)
	require.True(t, v.TotalValue.Equal(dec("200")))
}

func Test_AddPosition_MergesShares(t *testing.T) {
	t.Parallel()
	svc, repo, _ := valuationSetup(map[domain.Symbol]domain.Quote{"AAPL": validQuote("AAPL", 200)})
	ctx := context.Background()

	require.NoError(t, svc.AddPosition(ctx, "u1", "AAPL", dec("2")))
	require.NoError(t, svc.AddPosition(ctx, "u1", "AAPL", dec("3")))

	positions, err := repo.Positions(ctx, "u1")
	require.NoError(t, err)
	require.True(t, positions["AAPL"].Equal(dec("5")))
}

func Test_AddPosition_RejectsUnquotableSymbol(t *testing.T) {
	t.Parallel()
	svc, _, _ := valuationSetup(nil)

	err := svc.AddPosition(context.Background(), "u1", "NOPE", dec("1"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func Test_AddPosition_RejectsNonPositiveShares(t *testing.T) {
	t.Parallel()
	svc, _, _ := valuationSetup(map[domain.Symbol]domain.Quote{"AAPL": validQuote("AAPL", 200)})

	err := svc.AddPosition(context.Background(), "u1", "AAPL", dec("0"))
	require.ErrorIs(t, err, ErrInvalidInput)
	err = svc.AddPosition(context.Background(), "u1", "AAPL", dec("-1"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func Test_UpdateShares_MissingPosition(t *testing.T) {
	t.Parallel()
	svc, _, _ := valuationSetup(nil)

	err := svc.UpdateShares(context.Background(), "u1", "AAPL", dec("2"))
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_RemovePosition(t *testing.T) {
	t.Parallel()
	svc, repo, _ := valuationSetup(map[domain.Symbol]domain.Quote{"AAPL": validQuote("AAPL", 200)})
	ctx := context.Background()
	require.NoError(t, repo.UpsertPosition(ctx, "u1", "AAPL", dec("2")))

	require.NoError(t, svc.RemovePosition(ctx, "u1", "AAPL"))
	positions, err := repo.Positions(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, positions)

	err = svc.RemovePosition(ctx, "u1", "AAPL")
	require.ErrorIs(t, err, ErrNotFound)
}
