package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPacked    OrderStatus = "Packed"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// orderStatusTransitions lists, per status, the statuses an admin may move an order to.
// Terminal statuses have no entry.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPacked, OrderStatusCancelled},
	OrderStatusPacked:  {OrderStatusDelivered, OrderStatusCancelled},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(s)
	return status, status.IsValid()
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPacked, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Staying in the same status is not a transition.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	allowed, ok := orderStatusTransitions[s]
	if !ok {
		return false
	}
	return slices.Contains(allowed, next)
}

type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodOther  PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodWallet || m == PaymentMethodOther
}

type Order struct {
	ID             uint
	UserID         int
	UserFullName   string
	Subtotal       decimal.Decimal
	ServiceFee     decimal.Decimal
	TotalAmount    decimal.Decimal
	PaymentMethod  PaymentMethod
	Status         OrderStatus
	IdempotencyKey string
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TotalMatches reports whether the order total equals subtotal plus service fee.
func (o Order) TotalMatches() bool {
	return o.Subtotal.Add(o.ServiceFee).Equal(o.TotalAmount)
}

// OrderItem is a line item. Price is the unit price captured at checkout time.
type OrderItem struct {
	ID           uint
	OrderID      uint
	MedicineID   int
	MedicineName string
	Quantity     int
	Price        decimal.Decimal
}
