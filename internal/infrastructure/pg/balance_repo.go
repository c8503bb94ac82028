package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
	"finledger-service/internal/infrastructure/logx"
)

// BalanceRepo persists versioned balance rows. The version column carries the
// compare-and-swap: an UPDATE guarded by the expected version either advances
// it or touches zero rows.
type BalanceRepo struct{ db *DB }

func NewBalanceRepo(db *DB) *BalanceRepo { return &BalanceRepo{db: db} }

var _ application.BalanceRepo = (*BalanceRepo)(nil)

func (r *BalanceRepo) Get(ctx context.Context, userID string) (domain.Balance, error) {
	const q = `SELECT user_id, amount::text, updated_at, version FROM balances WHERE user_id=$1`
	var (
		out    domain.Balance
		amount string
	)
	err := r.db.Pool.QueryRow(ctx, q, userID).Scan(&out.UserID, &amount, &out.UpdatedAt, &out.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Balance{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Balance{}, err
	}
	out.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Balance{}, err
	}
	return out, nil
}

func (r *BalanceRepo) Create(ctx context.Context, b domain.Balance) (domain.Balance, error) {
	const ins = `
        INSERT INTO balances(user_id, amount, updated_at, version)
        VALUES ($1, $2::numeric, $3, $4)
        ON CONFLICT (user_id) DO NOTHING`
	tag, err := r.db.Pool.Exec(ctx, ins, b.UserID, b.Amount.String(), b.UpdatedAt, b.Version)
	if err != nil {
		return domain.Balance{}, err
	}
	if tag.RowsAffected() == 0 {
		// Another writer created the row first.
		return domain.Balance{}, application.ErrConflict
	}
	return b, nil
}

func (r *BalanceRepo) CompareAndSwap(ctx context.Context, userID string, amount decimal.Decimal, expectedVersion int64, now time.Time) (domain.Balance, error) {
	const up = `
        UPDATE balances
        SET amount=$2::numeric, updated_at=$3, version=version+1
        WHERE user_id=$1 AND version=$4
        RETURNING user_id, amount::text, updated_at, version`
	log := logx.L().With(
		zap.String("repo", "balance"),
		zap.String("operation", "CompareAndSwap"),
		zap.String("user_id", userID),
		zap.Int64("expected_version", expectedVersion),
	)
	var (
		out domain.Balance
		amt string
	)
	err := r.db.Pool.QueryRow(ctx, up, userID, amount.String(), now, expectedVersion).
		Scan(&out.UserID, &amt, &out.UpdatedAt, &out.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Warn("sql.cas_stale")
		return domain.Balance{}, domain.ErrStaleVersion
	}
	if err != nil {
		log.Error("sql.cas_failed", zap.Error(err))
		return domain.Balance{}, err
	}
	out.Amount, err = decimal.NewFromString(amt)
	if err != nil {
		return domain.Balance{}, err
	}
	log.Info("sql.cas_success", zap.Int64("version", out.Version))
	return out, nil
}
