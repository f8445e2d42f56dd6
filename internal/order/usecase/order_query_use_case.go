package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pharmacart/internal/auth"
	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type OrderReader interface {
	GetByID(ctx context.Context, id uint) (*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
}

type OrderQueryUseCase struct {
	orders OrderReader
	logger *zap.Logger
}

func NewOrderQueryUseCase(orders OrderReader, logger *zap.Logger) *OrderQueryUseCase {
	return &OrderQueryUseCase{
		orders: orders,
		logger: logger,
	}
}

// GetOrder returns an order to its owner or to an admin. Other callers get the same
// NotFoundError as for a missing order.
func (uc *OrderQueryUseCase) GetOrder(ctx context.Context, principal auth.Principal, orderID uint) (*domain.Order, error) {
	order, err := uc.orders.GetByID(ctx, orderID)
	if err != nil {
		if apperrors.IsBusinessError(err) {
			return nil, err
		}
		return nil, apperrors.NewStoreUnavailableError("order store unavailable", err)
	}

	if !principal.IsAdmin() && order.UserID != principal.UserID {
		uc.logger.Warn("order read by non-owner", zap.Uint("orderId", orderID), zap.Int("userId", principal.UserID))
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", orderID))
	}

	return order, nil
}

// ListOrders pages through all orders, newest first. A zero limit means the default
// page size and larger limits are capped.
func (uc *OrderQueryUseCase) ListOrders(ctx context.Context, principal auth.Principal, limit, offset int) ([]domain.Order, int, error) {
	if !principal.IsAdmin() {
		return nil, 0, apperrors.NewForbiddenError("only admins may list orders")
	}

	if limit < 0 || offset < 0 {
		return nil, 0, apperrors.NewValidationError("invalid pagination", apperrors.ValidationDetail{
			Field:   "limit,offset",
			Message: "limit and offset must be non-negative",
		})
	}
	if limit == 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	orders, err := uc.orders.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewStoreUnavailableError("order store unavailable", err)
	}

	return orders, limit, nil
}
