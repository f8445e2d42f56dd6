package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrder_Creation(t *testing.T) {
	createdAt := time.Now()

	order := Order{
		ID:            1,
		UserID:        10,
		Subtotal:      decimal.RequireFromString("25.00"),
		ServiceFee:    decimal.RequireFromString("5.00"),
		TotalAmount:   decimal.RequireFromString("30.00"),
		PaymentMethod: PaymentMethodWallet,
		Status:        OrderStatusPending,
		CreatedAt:     createdAt,
	}

	assert.Equal(t, uint(1), order.ID)
	assert.Equal(t, 10, order.UserID)
	assert.Equal(t, OrderStatusPending, order.Status)
	assert.True(t, order.TotalMatches())
	assert.Equal(t, createdAt, order.CreatedAt)
}

func TestOrder_TotalMismatch(t *testing.T) {
	order := Order{
		Subtotal:    decimal.RequireFromString("25.00"),
		ServiceFee:  decimal.RequireFromString("5.00"),
		TotalAmount: decimal.RequireFromString("29.99"),
	}

	assert.False(t, order.TotalMatches())
}

func TestAmountInRange(t *testing.T) {
	assert.True(t, AmountInRange(decimal.Zero))
	assert.True(t, AmountInRange(decimal.RequireFromString("9999999999.99")))
	assert.False(t, AmountInRange(decimal.RequireFromString("10000000000.00")))
	assert.False(t, AmountInRange(decimal.RequireFromString("-0.01")))
}

func TestOrder_AmountsInRange(t *testing.T) {
	order := Order{
		Subtotal:    decimal.RequireFromString("25.00"),
		ServiceFee:  decimal.RequireFromString("5.00"),
		TotalAmount: decimal.RequireFromString("30.00"),
		Items:       []OrderItem{{MedicineID: 5, Quantity: 2, Price: decimal.RequireFromString("12.50")}},
	}
	assert.True(t, order.AmountsInRange())

	order.Items[0].Price = decimal.RequireFromString("100000000000000.00")
	assert.False(t, order.AmountsInRange())

	order.Items[0].Price = decimal.RequireFromString("12.50")
	order.TotalAmount = decimal.RequireFromString("100000000000000.00")
	assert.False(t, order.AmountsInRange())
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		ok   bool
	}{
		{OrderStatusPending, OrderStatusPacked, true},
		{OrderStatusPacked, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPacked, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPacked, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusPacked, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPacked, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusPacked.IsTerminal())
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, ok := ParseOrderStatus("Packed")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusPacked, status)

	_, ok = ParseOrderStatus("packed")
	assert.False(t, ok)

	_, ok = ParseOrderStatus("")
	assert.False(t, ok)
}

func TestPaymentMethod_IsValid(t *testing.T) {
	assert.True(t, PaymentMethodWallet.IsValid())
	assert.True(t, PaymentMethodOther.IsValid())
	assert.False(t, PaymentMethod("card").IsValid())
}
