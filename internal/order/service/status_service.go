package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/metrics"
)

type OrderStatusUpdater interface {
	UpdateStatus(ctx context.Context, id uint, next domain.OrderStatus) (*domain.Order, error)
}

type WalletCrediter interface {
	Credit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error)
}

// StatusService is the admin side of the order lifecycle.
type StatusService struct {
	tx             Transactor
	orders         OrderStatusUpdater
	ledger         WalletCrediter
	metrics        *metrics.Metrics
	logger         *zap.Logger
	refundOnCancel bool
}

func NewStatusService(
	tx Transactor,
	orders OrderStatusUpdater,
	ledger WalletCrediter,
	metrics *metrics.Metrics,
	logger *zap.Logger,
	refundOnCancel bool,
) *StatusService {
	return &StatusService{
		tx:             tx,
		orders:         orders,
		ledger:         ledger,
		metrics:        metrics,
		logger:         logger,
		refundOnCancel: refundOnCancel,
	}
}

// UpdateStatus moves an order to status. Only admins may call it. With refunds
// enabled, cancelling a wallet-paid order credits its total back in the same
// transaction.
func (s *StatusService) UpdateStatus(ctx context.Context, principal auth.Principal, orderID uint, status string) (*domain.Order, error) {
	if !principal.IsAdmin() {
		s.metrics.ObserveTransition(status, metrics.ResultRejected)
		return nil, apperrors.NewForbiddenError("only admins may change order status")
	}

	next, ok := domain.ParseOrderStatus(status)
	if !ok {
		s.metrics.ObserveTransition(status, metrics.ResultRejected)
		return nil, apperrors.NewValidationError("invalid status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of Pending, Packed, Delivered, Cancelled",
		})
	}

	var (
		updated  *domain.Order
		refunded bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.UpdateStatus(ctx, orderID, next)
		if err != nil {
			return err
		}

		if s.refundOnCancel && next == domain.OrderStatusCancelled && order.PaymentMethod == domain.PaymentMethodWallet {
			if _, err := s.ledger.Credit(ctx, order.UserID, order.TotalAmount); err != nil {
				return fmt.Errorf("refunding order %d: %w", orderID, err)
			}
			refunded = true
		}

		updated = order
		return nil
	})
	if err != nil {
		if apperrors.IsBusinessError(err) {
			s.metrics.ObserveTransition(string(next), metrics.ResultRejected)
			s.logger.Warn("status change rejected", zap.Uint("orderId", orderID), zap.String("status", string(next)), zap.Error(err))
			return nil, err
		}
		s.metrics.ObserveTransition(string(next), metrics.ResultFailed)
		s.logger.Error("status change failed", zap.Uint("orderId", orderID), zap.String("status", string(next)), zap.Error(err))
		return nil, apperrors.NewStoreUnavailableError("order store unavailable", err)
	}

	s.metrics.ObserveTransition(string(next), metrics.ResultSuccess)
	if refunded {
		s.metrics.ObserveWalletOperation("refund")
		s.logger.Info("order refunded", zap.Uint("orderId", orderID), zap.Int("userId", updated.UserID), zap.String("amount", updated.TotalAmount.StringFixed(2)))
	}
	s.logger.Info("order status changed", zap.Uint("orderId", orderID), zap.String("status", string(next)), zap.Int("adminId", principal.UserID))

	return updated, nil
}
