package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Medicine struct {
	ID        int
	Name      string
	Price     decimal.Decimal
	Stock     *int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Orderable reports whether the medicine may appear on a new order.
func (m Medicine) Orderable() bool {
	return m.IsActive
}
