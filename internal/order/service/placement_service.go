package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/metrics"
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type WalletDebiter interface {
	Debit(ctx context.Context, userID int, amount decimal.Decimal) (decimal.Decimal, error)
}

type OrderCreator interface {
	CreateWithItems(ctx context.Context, order *domain.Order) error
}

// PlacementService runs one checkout as a single transaction: the wallet debit and
// the order insert commit together or not at all.
type PlacementService struct {
	tx        Transactor
	ledger    WalletDebiter
	orders    OrderCreator
	metrics   *metrics.Metrics
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewPlacementService(
	tx Transactor,
	ledger WalletDebiter,
	orders OrderCreator,
	metrics *metrics.Metrics,
	logger *zap.Logger,
	txTimeout time.Duration,
) *PlacementService {
	return &PlacementService{
		tx:        tx,
		ledger:    ledger,
		orders:    orders,
		metrics:   metrics,
		logger:    logger,
		txTimeout: txTimeout,
	}
}

// Place debits the wallet when the order is wallet-paid and creates the order with its
// items. On success order carries its generated ids and Pending status.
func (s *PlacementService) Place(ctx context.Context, order *domain.Order) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var newBalance decimal.Decimal
	err := s.tx.WithinTx(txCtx, func(ctx context.Context) error {
		if order.PaymentMethod == domain.PaymentMethodWallet {
			balance, err := s.ledger.Debit(ctx, order.UserID, order.TotalAmount)
			if err != nil {
				return err
			}
			newBalance = balance
		}

		return s.orders.CreateWithItems(ctx, order)
	})
	if err != nil {
		if apperrors.IsBusinessError(err) {
			s.logger.Warn("checkout rejected", zap.Int("userId", order.UserID), zap.String("idempotencyKey", order.IdempotencyKey), zap.Error(err))
		} else {
			s.logger.Error("checkout transaction failed", zap.Int("userId", order.UserID), zap.String("idempotencyKey", order.IdempotencyKey), zap.Error(err))
		}
		return err
	}

	if order.PaymentMethod == domain.PaymentMethodWallet {
		s.metrics.ObserveWalletOperation("debit")
		s.logger.Info("wallet debited", zap.Int("userId", order.UserID), zap.Uint("orderId", order.ID), zap.String("amount", order.TotalAmount.StringFixed(2)), zap.String("newBalance", newBalance.StringFixed(2)))
	}

	s.logger.Info("transaction committed", zap.Uint("orderId", order.ID), zap.Int("userId", order.UserID), zap.Int("itemCount", len(order.Items)), zap.String("totalAmount", order.TotalAmount.StringFixed(2)))

	return nil
}
