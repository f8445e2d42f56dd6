package domain

import "github.com/shopspring/decimal"

// MaxAmount is the largest value the DECIMAL(12,2) money columns hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// AmountInRange reports whether d is between 0 and MaxAmount inclusive.
func AmountInRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}

// AmountsInRange reports whether every money field of o, item prices included, fits a
// money column.
func (o Order) AmountsInRange() bool {
	if !AmountInRange(o.Subtotal) || !AmountInRange(o.ServiceFee) || !AmountInRange(o.TotalAmount) {
		return false
	}
	for _, item := range o.Items {
		if !AmountInRange(item.Price) {
			return false
		}
	}
	return true
}
