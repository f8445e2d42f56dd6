package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/metrics"
)

type LedgerStore interface {
	GetBalance(ctx context.Context, userID int) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error)
}

type WalletUseCase struct {
	ledger  LedgerStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewWalletUseCase(ledger LedgerStore, metrics *metrics.Metrics, logger *zap.Logger) *WalletUseCase {
	return &WalletUseCase{
		ledger:  ledger,
		metrics: metrics,
		logger:  logger,
	}
}

// GetBalance returns the caller's own balance.
func (uc *WalletUseCase) GetBalance(ctx context.Context, principal auth.Principal) (decimal.Decimal, error) {
	balance, err := uc.ledger.GetBalance(ctx, principal.UserID)
	if err != nil {
		if apperrors.IsBusinessError(err) {
			return decimal.Zero, err
		}
		return decimal.Zero, apperrors.NewStoreUnavailableError("wallet store unavailable", err)
	}
	return balance, nil
}

// Credit tops up a user's wallet. Admin only.
func (uc *WalletUseCase) Credit(ctx context.Context, principal auth.Principal, userID int, amount decimal.Decimal) (decimal.Decimal, error) {
	if !principal.IsAdmin() {
		return decimal.Zero, apperrors.NewForbiddenError("only admins may credit wallets")
	}

	if amount.GreaterThan(domain.MaxAmount) {
		return decimal.Zero, apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
	}

	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, apperrors.NewValidationError("invalid amount", apperrors.ValidationDetail{
			Field:   "amount",
			Message: "amount must have at most 2 decimal places",
		})
	}

	balance, err := uc.ledger.Credit(ctx, userID, amount)
	if err != nil {
		if apperrors.IsBusinessError(err) {
			uc.logger.Warn("wallet credit rejected", zap.Int("userId", userID), zap.Error(err))
			return decimal.Zero, err
		}
		uc.logger.Error("wallet credit failed", zap.Int("userId", userID), zap.Error(err))
		return decimal.Zero, apperrors.NewStoreUnavailableError("wallet store unavailable", err)
	}

	uc.metrics.ObserveWalletOperation("credit")
	uc.logger.Info("wallet credited", zap.Int("userId", userID), zap.Int("adminId", principal.UserID), zap.String("amount", amount.StringFixed(2)), zap.String("newBalance", balance.StringFixed(2)))

	return balance, nil
}
