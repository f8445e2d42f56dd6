package memory

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
)

type Orders struct {
	s *Store
}

func (o *Orders) CreateWithItems(ctx context.Context, order *domain.Order) error {
	if len(order.Items) == 0 {
		return apperrors.NewValidationError("order must contain at least one item", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}
	for idx, item := range order.Items {
		if item.Quantity <= 0 {
			return apperrors.NewValidationError("validation failed", apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].quantity",
				Message: "quantity must be greater than 0",
			})
		}
	}

	if !order.AmountsInRange() {
		return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
	}

	return o.s.WithinTx(ctx, func(ctx context.Context) error {
		if _, ok := o.s.users[order.UserID]; !ok {
			return userNotFound(order.UserID)
		}
		for _, existing := range o.s.orders {
			if existing.UserID == order.UserID && existing.IdempotencyKey == order.IdempotencyKey {
				return apperrors.NewConflictError(fmt.Sprintf("order with idempotency key %q already exists", order.IdempotencyKey))
			}
		}

		o.s.nextOrderID++
		created := now()
		order.ID = o.s.nextOrderID
		order.Status = domain.OrderStatusPending
		order.CreatedAt = created
		order.UpdatedAt = created
		for i := range order.Items {
			o.s.nextItemID++
			order.Items[i].ID = o.s.nextItemID
			order.Items[i].OrderID = order.ID
		}

		stored := cloneOrder(*order)
		stored.UserFullName = ""
		for i := range stored.Items {
			stored.Items[i].MedicineName = ""
		}
		o.s.orders[order.ID] = stored
		return nil
	})
}

func (o *Orders) UpdateStatus(ctx context.Context, id uint, next domain.OrderStatus) (*domain.Order, error) {
	var updated *domain.Order
	err := o.s.WithinTx(ctx, func(ctx context.Context) error {
		current, ok := o.s.orders[id]
		if !ok {
			return orderNotFound(id)
		}
		if !current.Status.CanTransitionTo(next) {
			return apperrors.NewInvalidTransitionError(string(current.Status), string(next))
		}

		current.Status = next
		current.UpdatedAt = now()
		o.s.orders[id] = current

		header := o.resolve(current)
		header.Items = nil
		updated = &header
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (o *Orders) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	var found *domain.Order
	err := o.s.WithinTx(ctx, func(ctx context.Context) error {
		order, ok := o.s.orders[id]
		if !ok {
			return orderNotFound(id)
		}
		resolved := o.resolve(order)
		found = &resolved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (o *Orders) FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error) {
	var found *domain.Order
	err := o.s.WithinTx(ctx, func(ctx context.Context) error {
		for _, order := range o.s.orders {
			if order.UserID == userID && order.IdempotencyKey == key {
				resolved := o.resolve(order)
				found = &resolved
				return nil
			}
		}
		return apperrors.NewNotFoundError(fmt.Sprintf("order with idempotency key %q not found", key))
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// List returns orders newest first.
func (o *Orders) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	orders := []domain.Order{}
	err := o.s.WithinTx(ctx, func(ctx context.Context) error {
		ids := make([]uint, 0, len(o.s.orders))
		for id := range o.s.orders {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		slices.Reverse(ids)

		for i := offset; i < len(ids) && len(orders) < limit; i++ {
			orders = append(orders, o.resolve(o.s.orders[ids[i]]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// resolve copies a stored order and fills the user and medicine names.
func (o *Orders) resolve(order domain.Order) domain.Order {
	resolved := cloneOrder(order)
	resolved.UserFullName = o.s.users[order.UserID].FullName
	for i := range resolved.Items {
		resolved.Items[i].MedicineName = o.s.medicines[resolved.Items[i].MedicineID].Name
	}
	return resolved
}

func orderNotFound(id uint) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
}
