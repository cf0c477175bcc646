package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

var deskSortable = map[string]bool{
	"id":       true,
	"name":     true,
	"capacity": true,
}

func (s *Store) CreateDesk(ctx context.Context, desk *models.Desk) error {
	if desk.Name == "" {
		return apperrors.New(apperrors.Validation, "desk name is required")
	}
	if desk.Capacity < 1 {
		return apperrors.New(apperrors.Validation, "desk capacity must be at least 1")
	}

	desk.Available = true
	tctx, cancel := s.ctx(ctx)
	defer cancel()
	return translate(s.db.WithContext(tctx).Create(desk).Error)
}

func (s *Store) GetDesk(ctx context.Context, id uint) (*models.Desk, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var desk models.Desk
	if err := s.db.WithContext(tctx).First(&desk, id).Error; err != nil {
		return nil, translate(err)
	}
	return &desk, nil
}

// DeskPatch deliberately has no Available field: occupancy is owned by the
// order state machine and cannot be edited through CRUD.
type DeskPatch struct {
	Name     *string
	Capacity *int
}

func (s *Store) UpdateDesk(ctx context.Context, id uint, patch DeskPatch) (*models.Desk, error) {
	var desk models.Desk

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&desk, id).Error; err != nil {
			return translate(err)
		}

		if patch.Name != nil {
			if *patch.Name == "" {
				return apperrors.New(apperrors.Validation, "desk name is required")
			}
			desk.Name = *patch.Name
		}
		if patch.Capacity != nil {
			if *patch.Capacity < 1 {
				return apperrors.New(apperrors.Validation, "desk capacity must be at least 1")
			}
			desk.Capacity = *patch.Capacity
		}

		return translate(tx.Save(&desk).Error)
	})
	if err != nil {
		return nil, err
	}
	return &desk, nil
}

func (s *Store) DeleteDesk(ctx context.Context, id uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		open := []string{models.StatusPlaced, models.StatusInProgress}
		var lines int64
		if err := tx.Model(&models.PlaceOrder{}).Where("desk_id = ? AND status IN ?", id, open).Count(&lines).Error; err != nil {
			return translate(err)
		}
		if lines > 0 {
			return apperrors.Newf(apperrors.Conflict, "desk %d is referenced by open order lines", id)
		}

		res := tx.Delete(&models.Desk{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.NotFound, "desk %d not found", id)
		}
		return nil
	})
}

func (s *Store) ListDesks(ctx context.Context, available *bool, opts ListOptions) ([]models.Desk, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.db.WithContext(tctx)
	if available != nil {
		q = q.Where("available = ?", *available)
	}

	var desks []models.Desk
	if err := opts.apply(q, deskSortable).Find(&desks).Error; err != nil {
		return nil, translate(err)
	}
	return desks, nil
}
