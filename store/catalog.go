package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

var catalogSortable = map[string]bool{
	"id":         true,
	"name":       true,
	"price":      true,
	"created_at": true,
}

// ---------------------------------------------------------------- categories

func (s *Store) CreateCategory(ctx context.Context, cat *models.Category) error {
	if cat.Name == "" {
		return apperrors.New(apperrors.Validation, "category name is required")
	}

	tctx, cancel := s.ctx(ctx)
	defer cancel()
	return translate(s.db.WithContext(tctx).Create(cat).Error)
}

func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var cat models.Category
	if err := s.db.WithContext(tctx).First(&cat, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cat, nil
}

type CategoryPatch struct {
	Name *string
}

func (s *Store) UpdateCategory(ctx context.Context, id uint, patch CategoryPatch) (*models.Category, error) {
	var cat models.Category

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&cat, id).Error; err != nil {
			return translate(err)
		}

		if patch.Name != nil {
			if *patch.Name == "" {
				return apperrors.New(apperrors.Validation, "category name is required")
			}
			cat.Name = *patch.Name
		}

		return translate(tx.Save(&cat).Error)
	})
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		var menus int64
		if err := tx.Model(&models.Menu{}).Where("category_id = ?", id).Count(&menus).Error; err != nil {
			return translate(err)
		}
		if menus > 0 {
			return apperrors.Newf(apperrors.Conflict, "category %d is referenced by %d menu(s)", id, menus)
		}

		res := tx.Delete(&models.Category{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.NotFound, "category %d not found", id)
		}
		return nil
	})
}

func (s *Store) ListCategories(ctx context.Context, opts ListOptions) ([]models.Category, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var cats []models.Category
	q := opts.apply(s.db.WithContext(tctx), catalogSortable)
	if err := q.Find(&cats).Error; err != nil {
		return nil, translate(err)
	}
	return cats, nil
}

// --------------------------------------------------------------------- menus

func (s *Store) CreateMenu(ctx context.Context, menu *models.Menu) error {
	if menu.Name == "" {
		return apperrors.New(apperrors.Validation, "menu name is required")
	}
	if menu.Price < 0 {
		return apperrors.New(apperrors.Validation, "menu price must not be negative")
	}

	return s.inTx(ctx, func(tx *gorm.DB) error {
		var cat models.Category
		if err := tx.First(&cat, menu.CategoryID).Error; err != nil {
			return apperrors.Newf(apperrors.Validation, "category %d does not exist", menu.CategoryID)
		}

		return translate(tx.Create(menu).Error)
	})
}

func (s *Store) GetMenu(ctx context.Context, id uint) (*models.Menu, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var menu models.Menu
	if err := s.db.WithContext(tctx).Preload("Category").First(&menu, id).Error; err != nil {
		return nil, translate(err)
	}
	return &menu, nil
}

type MenuPatch struct {
	Name        *string
	Description *string
	CategoryID  *uint
	Price       *float64
	Image       *string
}

func (s *Store) UpdateMenu(ctx context.Context, id uint, patch MenuPatch) (*models.Menu, error) {
	var menu models.Menu

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&menu, id).Error; err != nil {
			return translate(err)
		}

		if patch.Name != nil {
			if *patch.Name == "" {
				return apperrors.New(apperrors.Validation, "menu name is required")
			}
			menu.Name = *patch.Name
		}
		if patch.Description != nil {
			menu.Description = *patch.Description
		}
		if patch.CategoryID != nil {
			var cat models.Category
			if err := tx.First(&cat, *patch.CategoryID).Error; err != nil {
				return apperrors.Newf(apperrors.Validation, "category %d does not exist", *patch.CategoryID)
			}
			menu.CategoryID = *patch.CategoryID
		}
		if patch.Price != nil {
			if *patch.Price < 0 {
				return apperrors.New(apperrors.Validation, "menu price must not be negative")
			}
			menu.Price = *patch.Price
		}
		if patch.Image != nil {
			menu.Image = *patch.Image
		}

		return translate(tx.Save(&menu).Error)
	})
	if err != nil {
		return nil, err
	}
	return &menu, nil
}

func (s *Store) DeleteMenu(ctx context.Context, id uint) error {
	return s.inTx(ctx, func(tx *gorm.DB) error {
		open := []string{models.StatusPlaced, models.StatusInProgress}
		var lines int64
		if err := tx.Model(&models.PlaceOrder{}).Where("menu_id = ? AND status IN ?", id, open).Count(&lines).Error; err != nil {
			return translate(err)
		}
		var deliveries int64
		if err := tx.Model(&models.DeliveryOrder{}).Where("menu_id = ? AND status IN ?", id, open).Count(&deliveries).Error; err != nil {
			return translate(err)
		}
		if lines+deliveries > 0 {
			return apperrors.Newf(apperrors.Conflict, "menu %d is referenced by open order lines", id)
		}

		var promos int64
		if err := tx.Model(&models.Promotion{}).Where("menu_id = ?", id).Count(&promos).Error; err != nil {
			return translate(err)
		}
		if promos > 0 {
			return apperrors.Newf(apperrors.Conflict, "menu %d is referenced by %d promotion(s)", id, promos)
		}

		res := tx.Delete(&models.Menu{}, id)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Newf(apperrors.NotFound, "menu %d not found", id)
		}
		return nil
	})
}

func (s *Store) ListMenus(ctx context.Context, categoryID *uint, opts ListOptions) ([]models.Menu, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.db.WithContext(tctx).Preload("Category")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}

	var menus []models.Menu
	if err := opts.apply(q, catalogSortable).Find(&menus).Error; err != nil {
		return nil, translate(err)
	}
	return menus, nil
}

// ---------------------------------------------------------------- promotions

func (s *Store) CreatePromotion(ctx context.Context, promo *models.Promotion) error {
	if promo.Image == "" {
		return apperrors.New(apperrors.Validation, "promotion image is required")
	}

	return s.inTx(ctx, func(tx *gorm.DB) error {
		var menu models.Menu
		if err := tx.First(&menu, promo.MenuID).Error; err != nil {
			return apperrors.Newf(apperrors.Validation, "menu %d does not exist", promo.MenuID)
		}

		return translate(tx.Create(promo).Error)
	})
}

func (s *Store) GetPromotion(ctx context.Context, id uint) (*models.Promotion, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var promo models.Promotion
	if err := s.db.WithContext(tctx).Preload("Menu").First(&promo, id).Error; err != nil {
		return nil, translate(err)
	}
	return &promo, nil
}

type PromotionPatch struct {
	MenuID *uint
	Image  *string
}

func (s *Store) UpdatePromotion(ctx context.Context, id uint, patch PromotionPatch) (*models.Promotion, error) {
	var promo models.Promotion

	err := s.inTx(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&promo, id).Error; err != nil {
			return translate(err)
		}

		if patch.MenuID != nil {
			var menu models.Menu
			if err := tx.First(&menu, *patch.MenuID).Error; err != nil {
				return apperrors.Newf(apperrors.Validation, "menu %d does not exist", *patch.MenuID)
			}
			promo.MenuID = *patch.MenuID
		}
		if patch.Image != nil {
			if *patch.Image == "" {
				return apperrors.New(apperrors.Validation, "promotion image is required")
			}
			promo.Image = *patch.Image
		}

		return translate(tx.Save(&promo).Error)
	})
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (s *Store) DeletePromotion(ctx context.Context, id uint) error {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	res := s.db.WithContext(tctx).Delete(&models.Promotion{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.NotFound, "promotion %d not found", id)
	}
	return nil
}

func (s *Store) ListPromotions(ctx context.Context, opts ListOptions) ([]models.Promotion, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var promos []models.Promotion
	q := opts.apply(s.db.WithContext(tctx).Preload("Menu"), catalogSortable)
	if err := q.Find(&promos).Error; err != nil {
		return nil, translate(err)
	}
	return promos, nil
}
