package dto

import (
	"github.com/shopspring/decimal"

	"pharmacart/internal/domain"
)

// PlaceOrderInput is a checkout request after transport decoding. UserID comes from
// the authenticated principal, never from the body.
type PlaceOrderInput struct {
	UserID         int
	IdempotencyKey string
	Items          []PlaceOrderItem
	Subtotal       decimal.Decimal
	ServiceFee     decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  string
}

type PlaceOrderItem struct {
	MedicineID int
	Quantity   int
	Price      decimal.Decimal
}

type PlaceOrderResult struct {
	Order *domain.Order
	// Replayed is set when the idempotency key matched an earlier checkout and no new
	// order was created.
	Replayed bool
}
