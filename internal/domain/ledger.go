package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tags a balance delta as an increase or a decrease.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Transaction kinds recorded in the ledger.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// DirectionForKind maps a transaction kind to the delta direction applied to
// the balance. The mapping is a caller responsibility; the ledger itself only
// understands credit and debit.
func DirectionForKind(kind string) (Direction, bool) {
	switch kind {
	case KindIncome:
		return DirectionCredit, true
	case KindExpense:
		return DirectionDebit, true
	default:
		return "", false
	}
}

// LedgerEntry is one immutable line in the transaction ledger. Entries are
// appended by the callers that drive balance deltas and never mutated.
type LedgerEntry struct {
	ID            string
	UserID        string
	Kind          string
	Category      string
	Amount        decimal.Decimal
	Description   string
	RecordedAt    time.Time
	ReferenceType string
	ReferenceID   string
}
