package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the versioned running balance for one user. Version strictly
// increases on every successful write; a write carrying a stale version is
// rejected by the store.
type Balance struct {
	UserID    string
	Amount    decimal.Decimal
	UpdatedAt time.Time
	Version   int64
}
