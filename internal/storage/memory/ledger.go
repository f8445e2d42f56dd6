package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
)

type Ledger struct {
	s *Store
}

func (l *Ledger) GetBalance(ctx context.Context, userID int) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.s.WithinTx(ctx, func(ctx context.Context) error {
		u, ok := l.s.users[userID]
		if !ok {
			return userNotFound(userID)
		}
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

func (l *Ledger) Debit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nonPositiveAmount("debit")
	}
	return l.apply(ctx, userID, amount.Neg())
}

func (l *Ledger) Credit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nonPositiveAmount("credit")
	}
	return l.apply(ctx, userID, amount)
}

func (l *Ledger) apply(ctx context.Context, userID int, delta decimal.Decimal) (decimal.Decimal, error) {
	var newBalance decimal.Decimal
	err := l.s.WithinTx(ctx, func(ctx context.Context) error {
		u, ok := l.s.users[userID]
		if !ok {
			return userNotFound(userID)
		}

		next := u.WalletBalance.Add(delta)
		if next.IsNegative() {
			return apperrors.NewInsufficientFundsError(userID, u.WalletBalance, delta.Neg())
		}
		if next.GreaterThan(domain.MaxAmount) {
			return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
		}

		u.WalletBalance = next
		u.UpdatedAt = now()
		l.s.users[userID] = u
		newBalance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}

func userNotFound(userID int) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("user with id %d not found", userID))
}

func nonPositiveAmount(op string) error {
	return apperrors.NewValidationError(op+" amount must be positive", apperrors.ValidationDetail{
		Field:   "amount",
		Message: "amount must be greater than 0",
	})
}
