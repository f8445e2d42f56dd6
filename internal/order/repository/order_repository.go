package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/mysql"
)

const orderColumns = `
	o.id, o.userId, COALESCE(u.fullname, ''), o.subtotal, o.serviceFee, o.totalAmount,
	o.paymentMethod, o.status, o.idempotencyKey, o.createdAt, o.updatedAt`

type MySQLOrderRepository struct {
	txm   *mysql.TxManager
	items *MySQLOrderItemRepository
}

func NewMySQLOrderRepository(txm *mysql.TxManager, items *MySQLOrderItemRepository) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		txm:   txm,
		items: items,
	}
}

// CreateWithItems inserts the order header and every item in one transaction and fills
// the generated ids and timestamps on order. A second order with the same user and
// idempotency key fails with a ConflictError.
func (r *MySQLOrderRepository) CreateWithItems(ctx context.Context, order *domain.Order) error {
	if err := validateItems(order.Items); err != nil {
		return err
	}
	if !order.AmountsInRange() {
		return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)

	return r.txm.WithinTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO Orders (userId, subtotal, serviceFee, totalAmount, paymentMethod, status,
			                    idempotencyKey, createdAt, updatedAt)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

		result, err := r.txm.Conn(ctx).ExecContext(ctx, query,
			order.UserID, order.Subtotal, order.ServiceFee, order.TotalAmount,
			string(order.PaymentMethod), string(domain.OrderStatusPending),
			order.IdempotencyKey, now, now,
		)
		if mysql.IsDuplicateEntry(err) {
			return apperrors.NewConflictError(fmt.Sprintf("order with idempotency key %q already exists", order.IdempotencyKey))
		}
		if mysql.IsForeignKeyViolation(err) {
			return apperrors.NewNotFoundError(fmt.Sprintf("user with id %d not found", order.UserID))
		}
		if mysql.IsOutOfRange(err) {
			return apperrors.NewAmountOutOfRangeError("amount", domain.MaxAmount)
		}
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}

		lastInsertID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting last insert id: %w", err)
		}
		orderID := uint(lastInsertID)

		for i := range order.Items {
			order.Items[i].OrderID = orderID
			itemID, err := r.items.Insert(ctx, order.Items[i])
			if err != nil {
				return err
			}
			order.Items[i].ID = itemID
		}

		order.ID = orderID
		order.Status = domain.OrderStatusPending
		order.CreatedAt = now
		order.UpdatedAt = now
		return nil
	})
}

// UpdateStatus moves the order to next under a row lock and returns the updated header
// without items.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id uint, next domain.OrderStatus) (*domain.Order, error) {
	var order *domain.Order
	err := r.txm.WithinTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + orderColumns + `
			FROM Orders o
			LEFT JOIN Users u ON u.id = o.userId
			WHERE o.id = ?
			FOR UPDATE`

		current, err := scanOrder(r.txm.Conn(ctx).QueryRowContext(ctx, query, id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
		}
		if err != nil {
			return fmt.Errorf("locking order: %w", err)
		}

		if !current.Status.CanTransitionTo(next) {
			return apperrors.NewInvalidTransitionError(string(current.Status), string(next))
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		_, err = r.txm.Conn(ctx).ExecContext(ctx, `UPDATE Orders SET status = ?, updatedAt = ? WHERE id = ?`, string(next), now, id)
		if err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}

		current.Status = next
		current.UpdatedAt = now
		order = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *MySQLOrderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders o
		LEFT JOIN Users u ON u.id = o.userId
		WHERE o.id = ?`

	order, err := scanOrder(r.txm.Conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	if err := r.attachItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *MySQLOrderRepository) FindByIdempotencyKey(ctx context.Context, userID int, key string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders o
		LEFT JOIN Users u ON u.id = o.userId
		WHERE o.userId = ? AND o.idempotencyKey = ?`

	order, err := scanOrder(r.txm.Conn(ctx).QueryRowContext(ctx, query, userID, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with idempotency key %q not found", key))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by idempotency key: %w", err)
	}

	if err := r.attachItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// List returns orders newest first.
func (r *MySQLOrderRepository) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM Orders o
		LEFT JOIN Users u ON u.id = o.userId
		ORDER BY o.id DESC
		LIMIT ? OFFSET ?`

	rows, err := r.txm.Conn(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	var ids []uint
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order row: %w", err)
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order rows: %w", err)
	}

	items, err := r.items.FindByOrderIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}

	return orders, nil
}

func (r *MySQLOrderRepository) attachItems(ctx context.Context, order *domain.Order) error {
	items, err := r.items.FindByOrderIDs(ctx, []uint{order.ID})
	if err != nil {
		return err
	}
	order.Items = items[order.ID]
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order         domain.Order
		paymentMethod string
		status        string
	)
	err := row.Scan(
		&order.ID, &order.UserID, &order.UserFullName, &order.Subtotal, &order.ServiceFee,
		&order.TotalAmount, &paymentMethod, &status, &order.IdempotencyKey,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.PaymentMethod = domain.PaymentMethod(paymentMethod)
	order.Status = domain.OrderStatus(status)
	return &order, nil
}

func validateItems(items []domain.OrderItem) error {
	if len(items) == 0 {
		return apperrors.NewValidationError("order must contain at least one item", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	var details []apperrors.ValidationDetail
	for idx, item := range items {
		if item.Quantity <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items[" + strconv.Itoa(idx) + "].quantity",
				Message: "quantity must be greater than 0",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}
