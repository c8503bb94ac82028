package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
)

var _ application.BalanceRepo = (*fakeBalanceRepo)(nil)
var _ application.PortfolioRepo = (*fakePortfolioRepo)(nil)
var _ application.TransactionRecorder = (*fakeRecorder)(nil)
var _ application.Fetcher = (*fakeFetcher)(nil)

type fakeBalanceRepo struct {
	mu    sync.Mutex
	store map[string]domain.Balance
}

func (f *fakeBalanceRepo) Get(_ context.Context, userID string) (domain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.store[userID]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	return b, nil
}

func (f *fakeBalanceRepo) Create(_ context.Context, b domain.Balance) (domain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]domain.Balance{}
	}
	if _, ok := f.store[b.UserID]; ok {
		return domain.Balance{}, application.ErrConflict
	}
	f.store[b.UserID] = b
	return b, nil
}

func (f *fakeBalanceRepo) CompareAndSwap(_ context.Context, userID string, amount decimal.Decimal, expectedVersion int64, now time.Time) (domain.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.store[userID]
	if !ok || b.Version != expectedVersion {
		return domain.Balance{}, domain.ErrStaleVersion
	}
	b.Amount = amount
	b.UpdatedAt = now
	b.Version++
	f.store[userID] = b
	return b, nil
}

type fakePortfolioRepo struct {
	mu    sync.Mutex
	store map[string]map[domain.Symbol]decimal.Decimal
}

func (f *fakePortfolioRepo) Positions(_ context.Context, userID string) (map[domain.Symbol]decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.Symbol]decimal.Decimal{}
	for sym, shares := range f.store[userID] {
		out[sym] = shares
	}
	return out, nil
}

func (f *fakePortfolioRepo) UpsertPosition(_ context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]map[domain.Symbol]decimal.Decimal{}
	}
	if f.store[userID] == nil {
		f.store[userID] = map[domain.Symbol]decimal.Decimal{}
	}
	f.store[userID][symbol] = shares
	return nil
}

func (f *fakePortfolioRepo) DeletePosition(_ context.Context, userID string, symbol domain.Symbol) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.store[userID], symbol)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry
}

func (f *fakeRecorder) Append(_ context.Context, e domain.LedgerEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeRecorder) ListRecent(_ context.Context, userID string, since time.Time, limit int) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range f.entries {
		if e.UserID == userID && !e.RecordedAt.Before(since) {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecorder) DeleteByReference(_ context.Context, refType, refID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.ReferenceType != refType || e.ReferenceID != refID {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

// fakeFetcher prices every symbol at a flat quote except those in missing.
type fakeFetcher struct {
	missing map[domain.Symbol]bool
}

func (f *fakeFetcher) FetchAll(_ context.Context, symbols []domain.Symbol) map[domain.Symbol]domain.Quote {
	out := make(map[domain.Symbol]domain.Quote, len(symbols))
	for _, s := range symbols {
		if f.missing[s] {
			continue
		}
		out[s] = domain.Quote{
			Symbol:           s,
			Price:            decimal.NewFromInt(100),
			Change:           decimal.NewFromInt(1),
			Volume:           1000,
			LatestTradingDay: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			FetchedAt:        time.Now(),
		}
	}
	return out
}

// fakeIdem reserves each key exactly once, in memory.
type fakeIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (f *fakeIdem) TryReserve(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, key)
	return nil
}

func newInMemoryServer() (*Server, *fakeRecorder, *fakeFetcher) {
	fetcher := &fakeFetcher{missing: map[domain.Symbol]bool{}}
	cache := application.NewQuoteCache(fetcher, nil)
	balances := &fakeBalanceRepo{store: map[string]domain.Balance{}}
	portfolios := &fakePortfolioRepo{store: map[string]map[domain.Symbol]decimal.Decimal{}}
	recorder := &fakeRecorder{}
	ledger := application.NewLedgerService(balances, nil)
	valuation := application.NewValuationService(portfolios, cache, nil)
	return NewServer(cache, valuation, ledger, recorder, &fakeIdem{}), recorder, fetcher
}
