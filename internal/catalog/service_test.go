package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
)

type mockRepository struct {
	FindByIDsFunc func(ctx context.Context, ids []int) ([]domain.Medicine, error)
}

func (m *mockRepository) FindByIDs(ctx context.Context, ids []int) ([]domain.Medicine, error) {
	return m.FindByIDsFunc(ctx, ids)
}

func medicine(id int, active bool) domain.Medicine {
	return domain.Medicine{ID: id, Name: "Medicine", Price: decimal.NewFromInt(10), IsActive: active}
}

func TestService_GetMedicinesByIDs(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []int) ([]domain.Medicine, error) {
			return []domain.Medicine{medicine(1, true), medicine(3, true)}, nil
		},
	}

	found, notFound, err := NewService(repo).GetMedicinesByIDs(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)

	assert.Len(t, found, 2)
	assert.Equal(t, []int{2}, notFound)
}

func TestService_CheckOrderable_AllActive(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []int) ([]domain.Medicine, error) {
			return []domain.Medicine{medicine(1, true), medicine(2, true)}, nil
		},
	}

	err := NewService(repo).CheckOrderable(context.Background(), []int{1, 2})
	assert.NoError(t, err)
}

func TestService_CheckOrderable_UnknownAndInactive(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []int) ([]domain.Medicine, error) {
			return []domain.Medicine{medicine(1, true), medicine(2, false)}, nil
		},
	}

	err := NewService(repo).CheckOrderable(context.Background(), []int{1, 2, 9})

	ve, ok := apperrors.IsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Details, 2)
	assert.Equal(t, "medicine 9 does not exist", ve.Details[0].Message)
	assert.Equal(t, "medicine 2 is not available", ve.Details[1].Message)
}

func TestService_CheckOrderable_RepositoryError(t *testing.T) {
	repo := &mockRepository{
		FindByIDsFunc: func(ctx context.Context, ids []int) ([]domain.Medicine, error) {
			return nil, errors.New("connection refused")
		},
	}

	err := NewService(repo).CheckOrderable(context.Background(), []int{1})

	require.Error(t, err)
	assert.False(t, apperrors.IsBusinessError(err))
}
