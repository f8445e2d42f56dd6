package repository

import (
	"context"
	"fmt"
	"strings"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/mysql"
)

type MySQLOrderItemRepository struct {
	txm *mysql.TxManager
}

func NewMySQLOrderItemRepository(txm *mysql.TxManager) *MySQLOrderItemRepository {
	return &MySQLOrderItemRepository{txm: txm}
}

// Insert writes one line item and returns its generated id. It must run inside the
// transaction that created the order.
func (r *MySQLOrderItemRepository) Insert(ctx context.Context, item domain.OrderItem) (uint, error) {
	query := `INSERT INTO OrderItems (orderId, medicineId, quantity, price) VALUES (?, ?, ?, ?)`

	result, err := r.txm.Conn(ctx).ExecContext(ctx, query, item.OrderID, item.MedicineID, item.Quantity, item.Price)
	if mysql.IsOutOfRange(err) {
		return 0, apperrors.NewAmountOutOfRangeError("price", domain.MaxAmount)
	}
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return uint(lastInsertID), nil
}

// FindByOrderIDs loads the items of several orders, keyed by order id, with the
// medicine name resolved when the medicine still exists.
func (r *MySQLOrderItemRepository) FindByOrderIDs(ctx context.Context, orderIDs []uint) (map[uint][]domain.OrderItem, error) {
	items := make(map[uint][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return items, nil
	}

	placeholders := make([]string, len(orderIDs))
	args := make([]any, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT oi.id, oi.orderId, oi.medicineId, COALESCE(m.name, ''), oi.quantity, oi.price
		FROM OrderItems oi
		LEFT JOIN Medicines m ON m.id = oi.medicineId
		WHERE oi.orderId IN (%s)
		ORDER BY oi.orderId, oi.id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.txm.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MedicineID, &item.MedicineName, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("scanning order item row: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order item rows: %w", err)
	}

	return items, nil
}
