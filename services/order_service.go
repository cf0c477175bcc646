package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

// OrderService is the order state machine. Every status write and every desk
// claim or release runs inside a single transaction; concurrent writers race
// on compare-and-swap updates and the loser gets a conflict, never a silent
// overwrite.
type OrderService struct {
	DB      *gorm.DB
	timeout time.Duration
}

func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{DB: db, timeout: 5 * time.Second}
}

// transitions is the closed edge table. Anything absent is rejected.
var transitions = map[string]map[string]bool{
	models.StatusPlaced: {
		models.StatusInProgress: true,
		models.StatusCancelled:  true,
	},
	models.StatusInProgress: {
		models.StatusCompleted: true,
		models.StatusCancelled: true,
	},
}

func canTransition(from, to string) bool {
	return transitions[from][to]
}

type DineInItem struct {
	DeskID uint
	MenuID uint
	Qty    int
}

type DeliveryItem struct {
	MenuID  uint
	Qty     int
	Address string
	Phone   string
	Notes   string
}

func (s *OrderService) run(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.DB.WithContext(tctx).Transaction(fn)
}

func wrapDB(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.Wrap(apperrors.NotFound, err, "record not found")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Wrap(apperrors.Timeout, err, "operation timed out")
	}
	return err
}

// ------------------------------------------------------------------ creation

// CreateOrder opens a new order in the initial state and attaches any given
// lines. Desk claims happen atomically with line creation: if any desk is
// taken the whole order rolls back.
func (s *OrderService) CreateOrder(ctx context.Context, customerID uint, dineIn []DineInItem, delivery []DeliveryItem) (*models.Order, error) {
	var order models.Order

	err := s.run(ctx, func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, customerID).Error; err != nil {
			return apperrors.Newf(apperrors.Validation, "customer %d does not exist", customerID)
		}

		order = models.Order{
			CustomerID: customerID,
			Status:     models.StatusPlaced,
		}
		if err := tx.Create(&order).Error; err != nil {
			return wrapDB(err)
		}

		for _, item := range dineIn {
			if _, err := s.addPlaceOrderTx(tx, &order, item); err != nil {
				return err
			}
		}
		for _, item := range delivery {
			if _, err := s.addDeliveryOrderTx(tx, &order, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, order.ID)
}

// AddPlaceOrder appends a dine-in line to an open order, claiming the desk.
func (s *OrderService) AddPlaceOrder(ctx context.Context, orderID uint, item DineInItem) (*models.PlaceOrder, error) {
	var line *models.PlaceOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.StatusPlaced {
			return apperrors.Newf(apperrors.Conflict, "order %d is %s; lines are frozen once fulfillment begins", orderID, order.Status)
		}
		line, err = s.addPlaceOrderTx(tx, order, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// AddDeliveryOrder appends a delivery line to an open order.
func (s *OrderService) AddDeliveryOrder(ctx context.Context, orderID uint, item DeliveryItem) (*models.DeliveryOrder, error) {
	var line *models.DeliveryOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.Status != models.StatusPlaced {
			return apperrors.Newf(apperrors.Conflict, "order %d is %s; lines are frozen once fulfillment begins", orderID, order.Status)
		}
		line, err = s.addDeliveryOrderTx(tx, order, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *OrderService) addPlaceOrderTx(tx *gorm.DB, order *models.Order, item DineInItem) (*models.PlaceOrder, error) {
	total, err := lineTotal(tx, item.MenuID, item.Qty)
	if err != nil {
		return nil, err
	}
	if err := s.claimDesk(tx, order.ID, item.DeskID); err != nil {
		return nil, err
	}

	line := models.PlaceOrder{
		OrderID:    order.ID,
		DeskID:     item.DeskID,
		MenuID:     item.MenuID,
		Qty:        item.Qty,
		PriceTotal: total,
		Status:     models.StatusPlaced,
	}
	if err := tx.Create(&line).Error; err != nil {
		return nil, wrapDB(err)
	}
	return &line, nil
}

func (s *OrderService) addDeliveryOrderTx(tx *gorm.DB, order *models.Order, item DeliveryItem) (*models.DeliveryOrder, error) {
	total, err := lineTotal(tx, item.MenuID, item.Qty)
	if err != nil {
		return nil, err
	}
	if item.Address == "" {
		return nil, apperrors.New(apperrors.Validation, "delivery address is required")
	}

	line := models.DeliveryOrder{
		OrderID:    order.ID,
		MenuID:     item.MenuID,
		Qty:        item.Qty,
		Address:    item.Address,
		Phone:      item.Phone,
		Notes:      item.Notes,
		PriceTotal: total,
		Status:     models.StatusPlaced,
	}
	if err := tx.Create(&line).Error; err != nil {
		return nil, wrapDB(err)
	}
	return &line, nil
}

// lineTotal freezes price_total at qty x menu.price as of line creation.
func lineTotal(tx *gorm.DB, menuID uint, qty int) (float64, error) {
	if qty < 1 {
		return 0, apperrors.New(apperrors.Validation, "qty must be at least 1")
	}
	var menu models.Menu
	if err := tx.First(&menu, menuID).Error; err != nil {
		return 0, apperrors.Newf(apperrors.Validation, "menu %d does not exist", menuID)
	}
	return float64(qty) * menu.Price, nil
}

// claimDesk flips available true -> false with a compare-and-swap so two
// concurrent orders cannot both take the desk. A desk already held by the
// same order may be reused for additional lines.
func (s *OrderService) claimDesk(tx *gorm.DB, orderID, deskID uint) error {
	var desk models.Desk
	if err := tx.First(&desk, deskID).Error; err != nil {
		return apperrors.Newf(apperrors.Validation, "desk %d does not exist", deskID)
	}

	res := tx.Model(&models.Desk{}).
		Where("id = ? AND available = ?", deskID, true).
		Update("available", false)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var held int64
	err := tx.Model(&models.PlaceOrder{}).
		Where("order_id = ? AND desk_id = ?", orderID, deskID).
		Count(&held).Error
	if err != nil {
		return wrapDB(err)
	}
	if held == 0 {
		return apperrors.Newf(apperrors.Conflict, "desk %d is not available", deskID)
	}
	return nil
}

// releaseDesks frees every desk referenced by the order's dine-in lines.
// Called exactly when the order reaches a terminal state.
func (s *OrderService) releaseDesks(tx *gorm.DB, orderID uint) error {
	var deskIDs []uint
	err := tx.Model(&models.PlaceOrder{}).
		Where("order_id = ?", orderID).
		Distinct("desk_id").
		Pluck("desk_id", &deskIDs).Error
	if err != nil {
		return wrapDB(err)
	}
	if len(deskIDs) == 0 {
		return nil
	}

	return wrapDB(tx.Model(&models.Desk{}).
		Where("id IN ?", deskIDs).
		Update("available", true).Error)
}

// --------------------------------------------------------------- transitions

// TransitionOrder moves an order along the edge table. Completion requires
// every line completed; cancellation cascades to non-terminal lines. Both
// terminal targets release the order's desks atomically with the write.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID uint, target string) (*models.Order, error) {
	err := s.run(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if models.IsTerminalStatus(order.Status) {
			return apperrors.Newf(apperrors.InvalidTransition, "order %d is already %s", orderID, order.Status)
		}
		if !canTransition(order.Status, target) {
			return apperrors.Newf(apperrors.InvalidTransition, "order cannot go from %s to %s", order.Status, target)
		}

		switch target {
		case models.StatusCompleted:
			var notDone int64
			if err := countLines(tx, orderID, "status <> ?", models.StatusCompleted, &notDone); err != nil {
				return err
			}
			if notDone > 0 {
				return apperrors.Newf(apperrors.Conflict, "order %d has %d line(s) not yet completed", orderID, notDone)
			}
			if err := s.releaseDesks(tx, orderID); err != nil {
				return err
			}
		case models.StatusCancelled:
			open := []string{models.StatusPlaced, models.StatusInProgress}
			if err := tx.Model(&models.PlaceOrder{}).
				Where("order_id = ? AND status IN ?", orderID, open).
				Update("status", models.StatusCancelled).Error; err != nil {
				return wrapDB(err)
			}
			if err := tx.Model(&models.DeliveryOrder{}).
				Where("order_id = ? AND status IN ?", orderID, open).
				Update("status", models.StatusCancelled).Error; err != nil {
				return wrapDB(err)
			}
			if err := s.releaseDesks(tx, orderID); err != nil {
				return err
			}
		}

		return s.casOrderStatus(tx, orderID, order.Status, target)
	})
	if err != nil {
		return nil, err
	}
	return s.reloadOrder(ctx, orderID)
}

// TransitionPlaceOrder moves a dine-in line. Completing the final line of the
// order completes the order and releases its desks; cancelling the last
// remaining line cancels the order.
func (s *OrderService) TransitionPlaceOrder(ctx context.Context, lineID uint, target string) (*models.PlaceOrder, error) {
	var line models.PlaceOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		if err := s.transitionLineTx(tx, line.OrderID, line.Status, target, func() error {
			return casLineStatus(tx, &models.PlaceOrder{}, lineID, line.Status, target)
		}); err != nil {
			return err
		}
		line.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// TransitionDeliveryOrder moves a delivery line with the same cascade rules.
func (s *OrderService) TransitionDeliveryOrder(ctx context.Context, lineID uint, target string) (*models.DeliveryOrder, error) {
	var line models.DeliveryOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		if err := s.transitionLineTx(tx, line.OrderID, line.Status, target, func() error {
			return casLineStatus(tx, &models.DeliveryOrder{}, lineID, line.Status, target)
		}); err != nil {
			return err
		}
		line.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// transitionLineTx applies the shared line-transition rules: edge table,
// parent auto-advance on first fulfillment, parent completion when the final
// line completes, parent cancellation when every line is cancelled.
func (s *OrderService) transitionLineTx(tx *gorm.DB, orderID uint, from, target string, cas func() error) error {
	order, err := s.lockOrder(tx, orderID)
	if err != nil {
		return err
	}
	if models.IsTerminalStatus(order.Status) {
		return apperrors.Newf(apperrors.InvalidTransition, "order %d is already %s", orderID, order.Status)
	}
	if models.IsTerminalStatus(from) {
		return apperrors.Newf(apperrors.InvalidTransition, "line is already %s", from)
	}
	if !canTransition(from, target) {
		return apperrors.Newf(apperrors.InvalidTransition, "line cannot go from %s to %s", from, target)
	}

	if err := cas(); err != nil {
		return err
	}

	switch target {
	case models.StatusInProgress:
		if order.Status == models.StatusPlaced {
			return s.casOrderStatus(tx, orderID, models.StatusPlaced, models.StatusInProgress)
		}
	case models.StatusCompleted:
		var notDone int64
		if err := countLines(tx, orderID, "status <> ?", models.StatusCompleted, &notDone); err != nil {
			return err
		}
		if notDone == 0 {
			if err := s.releaseDesks(tx, orderID); err != nil {
				return err
			}
			return s.casOrderStatus(tx, orderID, order.Status, models.StatusCompleted)
		}
	case models.StatusCancelled:
		var notCancelled int64
		if err := countLines(tx, orderID, "status <> ?", models.StatusCancelled, &notCancelled); err != nil {
			return err
		}
		if notCancelled == 0 {
			if err := s.releaseDesks(tx, orderID); err != nil {
				return err
			}
			return s.casOrderStatus(tx, orderID, order.Status, models.StatusCancelled)
		}
	}
	return nil
}

// countLines counts lines of both kinds matching the condition.
func countLines(tx *gorm.DB, orderID uint, cond string, arg interface{}, out *int64) error {
	var a, b int64
	if err := tx.Model(&models.PlaceOrder{}).Where("order_id = ?", orderID).Where(cond, arg).Count(&a).Error; err != nil {
		return wrapDB(err)
	}
	if err := tx.Model(&models.DeliveryOrder{}).Where("order_id = ?", orderID).Where(cond, arg).Count(&b).Error; err != nil {
		return wrapDB(err)
	}
	*out = a + b
	return nil
}

// casOrderStatus writes the order status guarded by the status it was read
// at. A losing concurrent writer sees zero rows affected.
func (s *OrderService) casOrderStatus(tx *gorm.DB, orderID uint, from, to string) error {
	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.Conflict, "order %d was modified concurrently", orderID)
	}
	return nil
}

func casLineStatus(tx *gorm.DB, model interface{}, lineID uint, from, to string) error {
	res := tx.Model(model).
		Where("id = ? AND status = ?", lineID, from).
		Update("status", to)
	if res.Error != nil {
		return wrapDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Newf(apperrors.Conflict, "line %d was modified concurrently", lineID)
	}
	return nil
}

// lockOrder reads the order FOR UPDATE so sibling-line transitions serialize
// on the parent row. Without the row lock, two transactions completing the
// last two lines can each see the other's line as open under MVCC snapshot
// reads and both skip order completion. SQLite has no row locks; its single
// writer already serializes transactions.
func (s *OrderService) lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	if err := q.First(&order, orderID).Error; err != nil {
		return nil, wrapDB(err)
	}
	return &order, nil
}

func (s *OrderService) reloadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var order models.Order
	err := s.DB.WithContext(tctx).
		Preload("PlaceOrders").
		Preload("DeliveryOrders").
		First(&order, orderID).Error
	if err != nil {
		return nil, wrapDB(err)
	}
	return &order, nil
}

// -------------------------------------------------------------- line editing

type PlaceOrderPatch struct {
	Qty *int
}

// UpdatePlaceOrder edits a dine-in line. Qty (and with it price_total) is
// frozen once the parent order leaves the placed state.
func (s *OrderService) UpdatePlaceOrder(ctx context.Context, lineID uint, patch PlaceOrderPatch) (*models.PlaceOrder, error) {
	var line models.PlaceOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		order, err := s.lockOrder(tx, line.OrderID)
		if err != nil {
			return err
		}
		if models.IsTerminalStatus(line.Status) {
			return apperrors.Newf(apperrors.Conflict, "line is already %s", line.Status)
		}

		if patch.Qty != nil {
			if order.Status != models.StatusPlaced {
				return apperrors.Newf(apperrors.Conflict, "qty is frozen after fulfillment begins (order is %s)", order.Status)
			}
			total, err := lineTotal(tx, line.MenuID, *patch.Qty)
			if err != nil {
				return err
			}
			line.Qty = *patch.Qty
			line.PriceTotal = total
		}

		return wrapDB(tx.Save(&line).Error)
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

type DeliveryOrderPatch struct {
	Qty     *int
	Address *string
	Phone   *string
	Notes   *string
}

// UpdateDeliveryOrder edits a delivery line. Qty is frozen once fulfillment
// begins; address, phone and notes stay editable until the line is terminal.
func (s *OrderService) UpdateDeliveryOrder(ctx context.Context, lineID uint, patch DeliveryOrderPatch) (*models.DeliveryOrder, error) {
	var line models.DeliveryOrder

	err := s.run(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		order, err := s.lockOrder(tx, line.OrderID)
		if err != nil {
			return err
		}
		if models.IsTerminalStatus(line.Status) {
			return apperrors.Newf(apperrors.Conflict, "line is already %s", line.Status)
		}

		if patch.Qty != nil {
			if order.Status != models.StatusPlaced {
				return apperrors.Newf(apperrors.Conflict, "qty is frozen after fulfillment begins (order is %s)", order.Status)
			}
			total, err := lineTotal(tx, line.MenuID, *patch.Qty)
			if err != nil {
				return err
			}
			line.Qty = *patch.Qty
			line.PriceTotal = total
		}
		if patch.Address != nil {
			if *patch.Address == "" {
				return apperrors.New(apperrors.Validation, "delivery address is required")
			}
			line.Address = *patch.Address
		}
		if patch.Phone != nil {
			line.Phone = *patch.Phone
		}
		if patch.Notes != nil {
			line.Notes = *patch.Notes
		}

		return wrapDB(tx.Save(&line).Error)
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ------------------------------------------------------------------ deletion

// DeletePlaceOrder removes a dine-in line from an order that has not started
// fulfillment, releasing its desk unless a sibling line still holds it.
func (s *OrderService) DeletePlaceOrder(ctx context.Context, lineID uint) error {
	return s.run(ctx, func(tx *gorm.DB) error {
		var line models.PlaceOrder
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		order, err := s.lockOrder(tx, line.OrderID)
		if err != nil {
			return err
		}
		if order.Status != models.StatusPlaced {
			return apperrors.Newf(apperrors.Conflict, "lines are frozen once fulfillment begins (order is %s)", order.Status)
		}

		if err := tx.Delete(&models.PlaceOrder{}, lineID).Error; err != nil {
			return wrapDB(err)
		}

		var holding int64
		err = tx.Model(&models.PlaceOrder{}).
			Where("order_id = ? AND desk_id = ?", line.OrderID, line.DeskID).
			Count(&holding).Error
		if err != nil {
			return wrapDB(err)
		}
		if holding == 0 {
			return wrapDB(tx.Model(&models.Desk{}).
				Where("id = ?", line.DeskID).
				Update("available", true).Error)
		}
		return nil
	})
}

// DeleteDeliveryOrder removes a delivery line before fulfillment begins.
func (s *OrderService) DeleteDeliveryOrder(ctx context.Context, lineID uint) error {
	return s.run(ctx, func(tx *gorm.DB) error {
		var line models.DeliveryOrder
		if err := tx.First(&line, lineID).Error; err != nil {
			return wrapDB(err)
		}
		order, err := s.lockOrder(tx, line.OrderID)
		if err != nil {
			return err
		}
		if order.Status != models.StatusPlaced {
			return apperrors.Newf(apperrors.Conflict, "lines are frozen once fulfillment begins (order is %s)", order.Status)
		}
		return wrapDB(tx.Delete(&models.DeliveryOrder{}, lineID).Error)
	})
}

// DeleteOrder hard-deletes a terminal order and its lines. Open orders must
// be cancelled first so desks are released through the state machine.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint) error {
	return s.run(ctx, func(tx *gorm.DB) error {
		order, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !models.IsTerminalStatus(order.Status) {
			return apperrors.Newf(apperrors.Conflict, "order %d is %s; cancel it before deleting", orderID, order.Status)
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&models.PlaceOrder{}).Error; err != nil {
			return wrapDB(err)
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.DeliveryOrder{}).Error; err != nil {
			return wrapDB(err)
		}
		return wrapDB(tx.Delete(&models.Order{}, orderID).Error)
	})
}
