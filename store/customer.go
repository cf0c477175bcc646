package store

import (
	"context"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

var customerSortable = map[string]bool{
	"id":         true,
	"name":       true,
	"email":      true,
	"created_at": true,
}

func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if customer.Name == "" {
		return apperrors.New(apperrors.Validation, "customer name is required")
	}
	if customer.Email == "" {
		return apperrors.New(apperrors.Validation, "customer email is required")
	}

	tctx, cancel := s.ctx(ctx)
	defer cancel()
	q := s.db.WithContext(tctx)

	var count int64
	if err := q.Model(&models.Customer{}).Where("email = ?", customer.Email).Count(&count).Error; err != nil {
		return translate(err)
	}
	if count > 0 {
		return apperrors.Newf(apperrors.Validation, "email %s is already registered", customer.Email)
	}

	if customer.Status == "" {
		customer.Status = models.CustomerActive
	}
	return translate(q.Create(customer).Error)
}

func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var customer models.Customer
	if err := s.db.WithContext(tctx).First(&customer, id).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

// GetCustomerByAPIKey resolves the ordering-API credential. Status is not
// checked here; the middleware decides what an inactive customer may do.
func (s *Store) GetCustomerByAPIKey(ctx context.Context, apiKey string) (*models.Customer, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var customer models.Customer
	if err := s.db.WithContext(tctx).Where("api_key = ?", apiKey).First(&customer).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

type CustomerPatch struct {
	Name   *string
	Email  *string
	Status *string
}

func (s *Store) UpdateCustomer(ctx context.Context, id uint, patch CustomerPatch) (*models.Customer, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()
	q := s.db.WithContext(tctx)

	var customer models.Customer
	if err := q.First(&customer, id).Error; err != nil {
		return nil, translate(err)
	}

	if patch.Name != nil {
		if *patch.Name == "" {
			return nil, apperrors.New(apperrors.Validation, "customer name is required")
		}
		customer.Name = *patch.Name
	}
	if patch.Email != nil && *patch.Email != customer.Email {
		var count int64
		if err := q.Model(&models.Customer{}).Where("email = ? AND id <> ?", *patch.Email, id).Count(&count).Error; err != nil {
			return nil, translate(err)
		}
		if count > 0 {
			return nil, apperrors.Newf(apperrors.Validation, "email %s is already registered", *patch.Email)
		}
		customer.Email = *patch.Email
	}
	if patch.Status != nil {
		if *patch.Status != models.CustomerActive && *patch.Status != models.CustomerInactive {
			return nil, apperrors.Newf(apperrors.Validation, "unknown customer status %q", *patch.Status)
		}
		customer.Status = *patch.Status
	}

	if err := q.Save(&customer).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, id uint) error {
	tctx, cancel := s.ctx(ctx)
	defer cancel()
	q := s.db.WithContext(tctx)

	open := []string{models.StatusPlaced, models.StatusInProgress}
	var orders int64
	if err := q.Model(&models.Order{}).Where("customer_id = ? AND status IN ?", id, open).Count(&orders).Error; err != nil {
		return translate(err)
	}
	if orders > 0 {
		return apperrors.Newf(apperrors.Conflict, "customer %d has open orders", id)
	}

	res := q.Delete(&models.Customer{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.NotFound, "customer %d not found", id)
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, opts ListOptions) ([]models.Customer, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var customers []models.Customer
	q := opts.apply(s.db.WithContext(tctx), customerSortable)
	if err := q.Find(&customers).Error; err != nil {
		return nil, translate(err)
	}
	return customers, nil
}
