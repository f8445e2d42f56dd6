package repository

import (
	"context"
	"fmt"
	"strings"

	"pharmacart/internal/domain"
	"pharmacart/internal/infrastructure/mysql"
)

type MySQLMedicineRepository struct {
	txm *mysql.TxManager
}

func NewMySQLMedicineRepository(txm *mysql.TxManager) *MySQLMedicineRepository {
	return &MySQLMedicineRepository{txm: txm}
}

func (r *MySQLMedicineRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT id, name, price, stock, isActive, createdAt, updatedAt
		FROM Medicines
		WHERE id IN (%s)
		ORDER BY id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.txm.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying medicines: %w", err)
	}
	defer rows.Close()

	var medicines []domain.Medicine
	for rows.Next() {
		var m domain.Medicine
		err := rows.Scan(&m.ID, &m.Name, &m.Price, &m.Stock, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning medicine row: %w", err)
		}
		medicines = append(medicines, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating medicine rows: %w", err)
	}

	return medicines, nil
}
