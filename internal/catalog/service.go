package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
)

// Service is the read-only view of the medicine catalog used at checkout.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetMedicinesByIDs returns the medicines that exist and the ids that do not.
func (s *Service) GetMedicinesByIDs(ctx context.Context, ids []int) ([]domain.Medicine, []int, error) {
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	foundSet := make(map[int]struct{}, len(found))
	for _, m := range found {
		foundSet[m.ID] = struct{}{}
	}

	var notFoundIDs []int
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}

// CheckOrderable fails with a ValidationError naming every id that is unknown or
// inactive.
func (s *Service) CheckOrderable(ctx context.Context, ids []int) error {
	found, notFoundIDs, err := s.GetMedicinesByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("looking up medicines: %w", err)
	}

	var details []apperrors.ValidationDetail
	for _, id := range notFoundIDs {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items.medicine_id",
			Message: "medicine " + strconv.Itoa(id) + " does not exist",
		})
	}

	slices.SortFunc(found, func(a, b domain.Medicine) int { return a.ID - b.ID })
	for _, m := range found {
		if !m.Orderable() {
			details = append(details, apperrors.ValidationDetail{
				Field:   "items.medicine_id",
				Message: "medicine " + strconv.Itoa(m.ID) + " is not available",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("cart references unavailable medicines", details...)
	}

	return nil
}
