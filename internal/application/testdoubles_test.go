package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/domain"
)

var ErrBoom = errors.New("boom")

func validQuote(sym domain.Symbol, price float64) domain.Quote {
	return domain.Quote{
		Symbol:           sym,
		Price:            decimal.NewFromFloat(price),
		Change:           decimal.NewFromFloat(0.5),
		ChangePercent:    decimal.NewFromFloat(0.25),
		PreviousClose:    decimal.NewFromFloat(price - 0.5),
		Volume:           1000,
		Open:             decimal.NewFromFloat(price),
		High:             decimal.NewFromFloat(price + 1),
		Low:              decimal.NewFromFloat(price - 1),
		LatestTradingDay: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		FetchedAt:        time.Date(2025, 6, 2, 21, 0, 0, 0, time.UTC),
	}
}

// fakeProvider serves canned quotes/errors and records every call in arrival
// order, interleaved with gate marks when sharing a recorder with fakeGate.
type fakeProvider struct {
	mu     sync.Mutex
	quotes map[domain.Symbol]domain.Quote
	errs   map[domain.Symbol]error
	calls  []string
	rec    *callRecorder
}

func (f *fakeProvider) Get(_ context.Context, sym domain.Symbol) (domain.Quote, error) {
	f.mu.Lock()
	f.calls = append(f.calls, string(sym))
	f.mu.Unlock()
	if f.rec != nil {
		f.rec.add(string(sym))
	}
	if err, ok := f.errs[sym]; ok {
		return domain.Quote{}, err
	}
	q, ok := f.quotes[sym]
	if !ok {
		return domain.Quote{}, ErrBoom
	}
	return q, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// callRecorder collects an event stream shared by provider and gate so tests
// can reconstruct group boundaries.
type callRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *callRecorder) add(ev string) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

// groups splits the recorded events at gate marks into per-group symbol sets.
// Each group is preceded by a mark, so a mark only opens a new group when the
// current one has symbols in it.
func (r *callRecorder) groups() []map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []map[string]bool{{}}
	for _, ev := range r.events {
		if ev == gateMark {
			if len(out[len(out)-1]) > 0 {
				out = append(out, map[string]bool{})
			}
			continue
		}
		out[len(out)-1][ev] = true
	}
	return out
}

func (r *callRecorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

const gateMark = "|"

type fakeGate struct {
	mu    sync.Mutex
	waits int
	err   error
	rec   *callRecorder
}

func (g *fakeGate) Wait(context.Context) error {
	g.mu.Lock()
	g.waits++
	g.mu.Unlock()
	if g.rec != nil {
		g.rec.add(gateMark)
	}
	return g.err
}

func (g *fakeGate) waitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waits
}

// fetchCounter wraps canned results behind the Fetcher port and counts which
// symbols were requested upstream.
type fetchCounter struct {
	mu       sync.Mutex
	results  map[domain.Symbol]domain.Quote
	requests [][]domain.Symbol
}

func (f *fetchCounter) FetchAll(_ context.Context, symbols []domain.Symbol) map[domain.Symbol]domain.Quote {
	f.mu.Lock()
	f.requests = append(f.requests, append([]domain.Symbol(nil), symbols...))
	f.mu.Unlock()
	out := map[domain.Symbol]domain.Quote{}
	for _, s := range symbols {
		if q, ok := f.results[s]; ok {
			out[s] = q
		}
	}
	return out
}

func (f *fetchCounter) requested() [][]domain.Symbol {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

// memBalanceRepo implements a real compare-and-swap over an in-memory row,
// with an optional injected conflict count.
type memBalanceRepo struct {
	mu              sync.Mutex
	rows            map[string]domain.Balance
	forcedConflicts int
	casCalls        int
}

func newMemBalanceRepo() *memBalanceRepo {
	return &memBalanceRepo{rows: map[string]domain.Balance{}}
}

func (m *memBalanceRepo) Get(_ context.Context, userID string) (domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[userID]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memBalanceRepo) Create(_ context.Context, b domain.Balance) (domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[b.UserID]; ok {
		return domain.Balance{}, ErrConflict
	}
	m.rows[b.UserID] = b
	return b, nil
}

func (m *memBalanceRepo) CompareAndSwap(_ context.Context, userID string, amount decimal.Decimal, expectedVersion int64, now time.Time) (domain.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	if m.forcedConflicts > 0 {
		m.forcedConflicts--
		return domain.Balance{}, domain.ErrStaleVersion
	}
	b, ok := m.rows[userID]
	if !ok {
		return domain.Balance{}, domain.ErrNotFound
	}
	if b.Version != expectedVersion {
		return domain.Balance{}, domain.ErrStaleVersion
	}
	b.Amount = amount
	b.Version++
	b.UpdatedAt = now
	m.rows[userID] = b
	return b, nil
}

type memPortfolioRepo struct {
	mu        sync.Mutex
	positions map[string]map[domain.Symbol]decimal.Decimal
}

func newMemPortfolioRepo() *memPortfolioRepo {
	return &memPortfolioRepo{positions: map[string]map[domain.Symbol]decimal.Decimal{}}
}

func (m *memPortfolioRepo) Positions(_ context.Context, userID string) (map[domain.Symbol]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Symbol]decimal.Decimal{}
	for sym, sh := range m.positions[userID] {
		out[sym] = sh
	}
	return out, nil
}

func (m *memPortfolioRepo) UpsertPosition(_ context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.positions[userID] == nil {
		m.positions[userID] = map[domain.Symbol]decimal.Decimal{}
	}
	m.positions[userID][symbol] = shares
	return nil
}

func (m *memPortfolioRepo) DeletePosition(_ context.Context, userID string, symbol domain.Symbol) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions[userID], symbol)
	return nil
}

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }
