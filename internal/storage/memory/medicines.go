package memory

import (
	"context"
	"slices"

	"pharmacart/internal/domain"
)

type Medicines struct {
	s *Store
}

func (m *Medicines) FindByIDs(ctx context.Context, ids []int) ([]domain.Medicine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []domain.Medicine
	err := m.s.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			if med, ok := m.s.medicines[id]; ok {
				found = append(found, med)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(found, func(a, b domain.Medicine) int { return a.ID - b.ID })
	return slices.CompactFunc(found, func(a, b domain.Medicine) bool { return a.ID == b.ID }), nil
}
