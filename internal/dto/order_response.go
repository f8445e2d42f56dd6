package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"pharmacart/internal/domain"
)

type OrderResponse struct {
	ID            uint                `json:"id"`
	UserID        int                 `json:"user_id"`
	UserFullName  string              `json:"user_full_name,omitempty"`
	Subtotal      string              `json:"subtotal"`
	ServiceFee    string              `json:"service_fee"`
	TotalAmount   string              `json:"total_amount"`
	PaymentMethod string              `json:"payment_method"`
	Status        string              `json:"status"`
	Items         []OrderItemResponse `json:"items"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type OrderItemResponse struct {
	ID           uint   `json:"id"`
	MedicineID   int    `json:"medicine_id"`
	MedicineName string `json:"medicine_name,omitempty"`
	Quantity     int    `json:"quantity"`
	Price        string `json:"price"`
}

type PlaceOrderResponse struct {
	TraceID  string        `json:"traceId"`
	Replayed bool          `json:"replayed"`
	Order    OrderResponse `json:"order"`
}

type GetOrderResponse struct {
	TraceID string        `json:"traceId"`
	Order   OrderResponse `json:"order"`
}

type ListOrdersResponse struct {
	TraceID string          `json:"traceId"`
	Orders  []OrderResponse `json:"orders"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type UpdateOrderStatusResponse struct {
	TraceID   string    `json:"traceId"`
	OrderID   uint      `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletResponse struct {
	TraceID string `json:"traceId"`
	UserID  int    `json:"user_id"`
	Balance string `json:"balance"`
}

func NewOrderResponse(order *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ID:           item.ID,
			MedicineID:   item.MedicineID,
			MedicineName: item.MedicineName,
			Quantity:     item.Quantity,
			Price:        money(item.Price),
		}
	}

	return OrderResponse{
		ID:            order.ID,
		UserID:        order.UserID,
		UserFullName:  order.UserFullName,
		Subtotal:      money(order.Subtotal),
		ServiceFee:    money(order.ServiceFee),
		TotalAmount:   money(order.TotalAmount),
		PaymentMethod: string(order.PaymentMethod),
		Status:        string(order.Status),
		Items:         items,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func NewWalletResponse(traceID string, userID int, balance decimal.Decimal) WalletResponse {
	return WalletResponse{
		TraceID: traceID,
		UserID:  userID,
		Balance: money(balance),
	}
}

// money renders an amount with exactly two decimals.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
