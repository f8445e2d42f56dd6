package dto

import "github.com/shopspring/decimal"

type PlaceOrderRequest struct {
	Items         []PlaceOrderRequestItem `json:"items"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	ServiceFee    decimal.Decimal         `json:"service_fee"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	PaymentMethod string                  `json:"payment_method"`
}

type PlaceOrderRequestItem struct {
	MedicineID int             `json:"medicine_id"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type CreditWalletRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
