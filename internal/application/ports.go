package application

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/domain"
)

// QuoteProvider adapts one upstream quote endpoint into a typed quote result.
type QuoteProvider interface {
	Get(ctx context.Context, symbol domain.Symbol) (domain.Quote, error)
}

// BalanceRepo persists one versioned balance row per user. CompareAndSwap must
// reject a write whose expected version no longer matches the stored row with
// domain.ErrStaleVersion.
type BalanceRepo interface {
	Get(ctx context.Context, userID string) (domain.Balance, error)
	Create(ctx context.Context, b domain.Balance) (domain.Balance, error)
	CompareAndSwap(ctx context.Context, userID string, amount decimal.Decimal, expectedVersion int64, now time.Time) (domain.Balance, error)
}

// TransactionRecorder appends immutable ledger entries. It is an external
// collaborator: balance writes and entry appends commit separately.
type TransactionRecorder interface {
	Append(ctx context.Context, e domain.LedgerEntry) error
	ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]domain.LedgerEntry, error)
	DeleteByReference(ctx context.Context, refType, refID string) error
}

// PortfolioRepo holds share counts per user and symbol.
type PortfolioRepo interface {
	Positions(ctx context.Context, userID string) (map[domain.Symbol]decimal.Decimal, error)
	UpsertPosition(ctx context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error
	DeletePosition(ctx context.Context, userID string, symbol domain.Symbol) error
}

// Gate paces group dispatch in the fetch pipeline. Production uses a token
// bucket; tests inject a manual gate so throttling is observable without real
// time delays.
type Gate interface {
	Wait(ctx context.Context) error
}

// NoopGate never blocks.
type NoopGate struct{}

func (NoopGate) Wait(context.Context) error { return nil }

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }
