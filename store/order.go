package store

import (
	"context"

	"github.com/qrestaurant/backoffice/models"
)

var orderSortable = map[string]bool{
	"id":         true,
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

// Order reads live here; order mutations go through services.OrderService so
// every status write happens inside the state machine's transaction.

func (s *Store) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var order models.Order
	err := s.db.WithContext(tctx).
		Preload("PlaceOrders").
		Preload("DeliveryOrders").
		First(&order, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, customerID *uint, status string, opts ListOptions) ([]models.Order, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.db.WithContext(tctx).
		Preload("PlaceOrders").
		Preload("DeliveryOrders")
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := opts.apply(q, orderSortable).Find(&orders).Error; err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (s *Store) GetPlaceOrder(ctx context.Context, id uint) (*models.PlaceOrder, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var line models.PlaceOrder
	if err := s.db.WithContext(tctx).First(&line, id).Error; err != nil {
		return nil, translate(err)
	}
	return &line, nil
}

func (s *Store) GetDeliveryOrder(ctx context.Context, id uint) (*models.DeliveryOrder, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	var line models.DeliveryOrder
	if err := s.db.WithContext(tctx).First(&line, id).Error; err != nil {
		return nil, translate(err)
	}
	return &line, nil
}

func (s *Store) ListPlaceOrders(ctx context.Context, orderID *uint, opts ListOptions) ([]models.PlaceOrder, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.db.WithContext(tctx)
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}

	var lines []models.PlaceOrder
	if err := opts.apply(q, orderSortable).Find(&lines).Error; err != nil {
		return nil, translate(err)
	}
	return lines, nil
}

func (s *Store) ListDeliveryOrders(ctx context.Context, orderID *uint, opts ListOptions) ([]models.DeliveryOrder, error) {
	tctx, cancel := s.ctx(ctx)
	defer cancel()

	q := s.db.WithContext(tctx)
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}

	var lines []models.DeliveryOrder
	if err := opts.apply(q, orderSortable).Find(&lines).Error; err != nil {
		return nil, translate(err)
	}
	return lines, nil
}
