package pg

import (
	"context"

	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
)

// PortfolioRepo stores share counts per user and symbol.
type PortfolioRepo struct{ db *DB }

func NewPortfolioRepo(db *DB) *PortfolioRepo { return &PortfolioRepo{db: db} }

var _ application.PortfolioRepo = (*PortfolioRepo)(nil)

func (r *PortfolioRepo) Positions(ctx context.Context, userID string) (map[domain.Symbol]decimal.Decimal, error) {
	const q = `SELECT symbol, shares::text FROM positions WHERE user_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.Symbol]decimal.Decimal{}
	for rows.Next() {
		var sym, shares string
		if err := rows.Scan(&sym, &shares); err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(shares)
		if err != nil {
			return nil, err
		}
		out[domain.Symbol(sym)] = d
	}
	return out, rows.Err()
}

func (r *PortfolioRepo) UpsertPosition(ctx context.Context, userID string, symbol domain.Symbol, shares decimal.Decimal) error {
	const up = `
        INSERT INTO positions(user_id, symbol, shares)
        VALUES ($1, $2, $3::numeric)
        ON CONFLICT (user_id, symbol) DO UPDATE SET shares=EXCLUDED.shares`
	_, err := r.db.Pool.Exec(ctx, up, userID, string(symbol), shares.String())
	return err
}

func (r *PortfolioRepo) DeletePosition(ctx context.Context, userID string, symbol domain.Symbol) error {
	const del = `DELETE FROM positions WHERE user_id=$1 AND symbol=$2`
	_, err := r.db.Pool.Exec(ctx, del, userID, string(symbol))
	return err
}
