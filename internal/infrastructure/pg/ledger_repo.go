package pg

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finledger-service/internal/application"
	"finledger-service/internal/domain"
)

// LedgerRepo appends and reads immutable transaction entries.
type LedgerRepo struct{ db *DB }

func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

var _ application.TransactionRecorder = (*LedgerRepo)(nil)

func (r *LedgerRepo) Append(ctx context.Context, e domain.LedgerEntry) error {
	const ins = `
        INSERT INTO transactions(id, user_id, kind, category, amount, description, recorded_at, reference_type, reference_id)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`
	_, err := r.db.Pool.Exec(ctx, ins,
		e.ID, e.UserID, e.Kind, e.Category, e.Amount.String(), e.Description, e.RecordedAt, e.ReferenceType, e.ReferenceID)
	return err
}

func (r *LedgerRepo) ListRecent(ctx context.Context, userID string, since time.Time, limit int) ([]domain.LedgerEntry, error) {
	const q = `
        SELECT id::text, user_id, kind, category, amount::text, description, recorded_at, reference_type, reference_id
        FROM transactions
        WHERE user_id=$1 AND recorded_at > $2
        ORDER BY recorded_at DESC
        LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.LedgerEntry
	for rows.Next() {
		var (
			e   domain.LedgerEntry
			amt string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.Category, &amt, &e.Description, &e.RecordedAt, &e.ReferenceType, &e.ReferenceID); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LedgerRepo) DeleteByReference(ctx context.Context, refType, refID string) error {
	const del = `DELETE FROM transactions WHERE reference_type=$1 AND reference_id=$2`
	_, err := r.db.Pool.Exec(ctx, del, refType, refID)
	return err
}
