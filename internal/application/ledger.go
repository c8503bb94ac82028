package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger-service/internal/domain"
)

// DeltaRequest is one signed adjustment to a user's running balance. Amount is
// always positive; Direction tells the ledger which way it moves. The
// transaction identity travels along for idempotency and audit but is not
// enforced here.
type DeltaRequest struct {
	UserID        string
	Amount        decimal.Decimal
	Direction     domain.Direction
	TransactionID string
}

// LedgerService owns all mutation of balance rows. Writes go through a
// compare-and-swap on the version column instead of a lock, because contention
// on a single user's balance is expected to be rare.
type LedgerService struct {
	balances BalanceRepo
	retry    RetryPolicy
	clock    Clock
	log      *zap.Logger
}

type LedgerOption func(*LedgerService)

func WithClock(c Clock) LedgerOption {
	return func(s *LedgerService) { s.clock = c }
}

func WithRetryPolicy(p RetryPolicy) LedgerOption {
	return func(s *LedgerService) { s.retry = p }
}

func NewLedgerService(balances BalanceRepo, log *zap.Logger, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{balances: balances, log: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// GetOrCreate returns the user's balance, creating a zero row on first
// access. Idempotent: a concurrent creator winning the race is re-read.
func (s *LedgerService) GetOrCreate(ctx context.Context, userID string) (domain.Balance, error) {
	if userID == "" {
		return domain.Balance{}, fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	b, err := s.balances.Get(ctx, userID)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Balance{}, err
	}
	created, err := s.balances.Create(ctx, domain.Balance{
		UserID:    userID,
		Amount:    decimal.Zero,
		UpdatedAt: s.clock.Now(),
		Version:   1,
	})
	if err == nil {
		return created, nil
	}
	if errors.Is(err, ErrConflict) {
		return s.balances.Get(ctx, userID)
	}
	return domain.Balance{}, err
}

// ApplyDelta reads the current balance, computes the new amount and writes it
// back conditionally on the version observed at read time. A stale version is
// retried from the read up to the policy bound, then surfaced as
// ErrConcurrencyConflict. It does not append a ledger entry; callers pair the
// delta with the Transaction Recorder themselves.
func (s *LedgerService) ApplyDelta(ctx context.Context, req DeltaRequest) (domain.Balance, error) {
	if req.UserID == "" {
		return domain.Balance{}, fmt.Errorf("%w: empty user", ErrInvalidInput)
	}
	if req.Amount.Sign() <= 0 {
		return domain.Balance{}, fmt.Errorf("%w: non-positive amount %s", ErrInvalidInput, req.Amount)
	}
	if req.Direction != domain.DirectionCredit && req.Direction != domain.DirectionDebit {
		return domain.Balance{}, fmt.Errorf("%w: direction %q", ErrInvalidInput, req.Direction)
	}

	signed := req.Amount
	if req.Direction == domain.DirectionDebit {
		signed = signed.Neg()
	}
	return s.applySigned(ctx, req.UserID, signed)
}

// ApplyAdjustment replaces the balance effect of an edited income/expense in
// one retried write: the delta is newAmount-oldAmount applied once, so a crash
// can no longer land between reversing the old amount and applying the new.
func (s *LedgerService) ApplyAdjustment(ctx context.Context, userID string, oldAmount, newAmount decimal.Decimal, kind string) (domain.Balance, error) {
	if oldAmount.Sign() < 0 || newAmount.Sign() <= 0 {
		return domain.Balance{}, fmt.Errorf("%w: amounts must be positive", ErrInvalidInput)
	}
	dir, ok := domain.DirectionForKind(kind)
	if !ok {
		return domain.Balance{}, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	net := newAmount.Sub(oldAmount)
	if dir == domain.DirectionDebit {
		net = net.Neg()
	}
	if net.Sign() == 0 {
		return s.GetOrCreate(ctx, userID)
	}
	return s.applySigned(ctx, userID, net)
}

// SetAbsolute overrides the balance to newAmount. Administrative operation:
// a single conditional write, no retry loop.
func (s *LedgerService) SetAbsolute(ctx context.Context, userID string, newAmount decimal.Decimal) (domain.Balance, error) {
	b, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return domain.Balance{}, err
	}
	updated, err := s.balances.CompareAndSwap(ctx, userID, newAmount, b.Version, s.clock.Now())
	if errors.Is(err, domain.ErrStaleVersion) {
		return domain.Balance{}, fmt.Errorf("%w: set balance for %s", ErrConcurrencyConflict, userID)
	}
	return updated, err
}

func (s *LedgerService) applySigned(ctx context.Context, userID string, signed decimal.Decimal) (domain.Balance, error) {
	attempts := s.retry.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		b, err := s.GetOrCreate(ctx, userID)
		if err != nil {
			return domain.Balance{}, err
		}
		updated, err := s.balances.CompareAndSwap(ctx, userID, b.Amount.Add(signed), b.Version, s.clock.Now())
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrStaleVersion) {
			return domain.Balance{}, err
		}
		s.log.Warn("ledger.version_conflict",
			zap.String("user_id", userID),
			zap.Int("attempt", attempt),
		)
		if attempt < attempts {
			s.retry.pause(attempt)
		}
	}
	return domain.Balance{}, fmt.Errorf("%w: balance update for %s after %d attempts", ErrConcurrencyConflict, userID, attempts)
}
