package catalog

import (
	"context"

	"pharmacart/internal/domain"
)

type Repository interface {
	FindByIDs(ctx context.Context, ids []int) ([]domain.Medicine, error)
}
