package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	return openTestDB(t, dsn)
}

// setupFileDB backs the database with a real file so separate connections can
// race against each other. Transactions take the write lock up front
// (_txlock=immediate), so a second writer queues on the busy timeout instead
// of deadlocking mid-transaction.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "orders.db") + "?_txlock=immediate&_busy_timeout=5000"
	return openTestDB(t, dsn)
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Category{},
		&models.Menu{},
		&models.Desk{},
		&models.Customer{},
		&models.Order{},
		&models.PlaceOrder{},
		&models.DeliveryOrder{},
	)
	require.NoError(t, err)
	return db
}

type fixture struct {
	customer models.Customer
	menu     models.Menu
	desk     models.Desk
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	category := models.Category{Name: "Mains"}
	require.NoError(t, db.Create(&category).Error)

	menu := models.Menu{CategoryID: category.ID, Name: "Nasi Goreng", Description: "Fried rice", Price: 12.5, Image: "nasi.jpg"}
	require.NoError(t, db.Create(&menu).Error)

	desk := models.Desk{Name: "T1", Capacity: 4, Available: true}
	require.NoError(t, db.Create(&desk).Error)

	customer := models.Customer{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", APIKey: "k", Status: models.CustomerActive}
	require.NoError(t, db.Create(&customer).Error)

	return fixture{customer: customer, menu: menu, desk: desk}
}

func TestCreateOrderClaimsDeskAndFreezesPrice(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 3},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPlaced, order.Status)
	require.Len(t, order.PlaceOrders, 1)
	assert.Equal(t, 37.5, order.PlaceOrders[0].PriceTotal)

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.False(t, desk.Available)

	// Later price changes must not move the frozen total.
	require.NoError(t, db.Model(&models.Menu{}).Where("id = ?", fx.menu.ID).Update("price", 99.0).Error)
	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 37.5, reloaded.PlaceOrders[0].PriceTotal)
}

func TestCreateOrderUnknownCustomerFails(t *testing.T) {
	db := setupTestDB(t)
	seedFixture(t, db)
	svc := NewOrderService(db)

	_, err := svc.CreateOrder(context.Background(), 999, nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.Validation))
}

func TestClaimedDeskRejectsSecondOrder(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	_, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	_, err = svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))

	// The losing order must not survive the rollback.
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConcurrentDeskClaimHasSingleWinner(t *testing.T) {
	db := setupFileDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
				{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
			}, nil)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.Is(err, apperrors.Conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	// The loser's order must not survive the rollback.
	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.EqualValues(t, 1, orders)

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.False(t, desk.Available)
}

func TestConcurrentSiblingCompletionsCompleteOrder(t *testing.T) {
	db := setupFileDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID,
		[]DineInItem{{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1}},
		[]DeliveryItem{{MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St"}},
	)
	require.NoError(t, err)
	dineLine := order.PlaceOrders[0].ID
	deliveryLine := order.DeliveryOrders[0].ID

	_, err = svc.TransitionPlaceOrder(context.Background(), dineLine, models.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.TransitionDeliveryOrder(context.Background(), deliveryLine, models.StatusInProgress)
	require.NoError(t, err)

	// Both lines finish at once. Whichever transaction runs second must see
	// the first line as completed and finish the order; if neither does, the
	// order is stuck in_progress and the desk is never released.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.TransitionPlaceOrder(context.Background(), dineLine, models.StatusCompleted)
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = svc.TransitionDeliveryOrder(context.Background(), deliveryLine, models.StatusCompleted)
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.True(t, desk.Available)
}

func TestSameOrderMayReuseItsDesk(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	_, err = svc.AddPlaceOrder(context.Background(), order.ID, DineInItem{
		DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 2,
	})
	assert.NoError(t, err)
}

func TestOrderTransitionEdges(t *testing.T) {
	statuses := []string{
		models.StatusPlaced,
		models.StatusInProgress,
		models.StatusCompleted,
		models.StatusCancelled,
	}
	allowed := map[string]map[string]bool{
		models.StatusPlaced:     {models.StatusInProgress: true, models.StatusCancelled: true},
		models.StatusInProgress: {models.StatusCompleted: true, models.StatusCancelled: true},
	}

	for _, from := range statuses {
		for _, to := range statuses {
			t.Run(from+"_to_"+to, func(t *testing.T) {
				db := setupTestDB(t)
				fx := seedFixture(t, db)
				svc := NewOrderService(db)

				order := models.Order{CustomerID: fx.customer.ID, Status: from}
				require.NoError(t, db.Create(&order).Error)

				_, err := svc.TransitionOrder(context.Background(), order.ID, to)
				if allowed[from][to] {
					assert.NoError(t, err)
				} else {
					assert.True(t, apperrors.Is(err, apperrors.InvalidTransition), "got %v", err)
				}
			})
		}
	}
}

func TestCompleteOrderRequiresAllLinesCompleted(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	lineID := order.PlaceOrders[0].ID
	_, err = svc.TransitionPlaceOrder(context.Background(), lineID, models.StatusInProgress)
	require.NoError(t, err)

	// Line still open: completing the order must conflict.
	_, err = svc.TransitionOrder(context.Background(), order.ID, models.StatusCompleted)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestCompletingFinalLineCompletesOrderAndReleasesDesk(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)
	lineID := order.PlaceOrders[0].ID

	_, err = svc.TransitionPlaceOrder(context.Background(), lineID, models.StatusInProgress)
	require.NoError(t, err)

	// First fulfillment auto-advances the parent.
	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)

	_, err = svc.TransitionPlaceOrder(context.Background(), lineID, models.StatusCompleted)
	require.NoError(t, err)

	reloaded, err = svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.True(t, desk.Available)
}

func TestPartialFulfillmentKeepsOrderInProgress(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID,
		[]DineInItem{{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1}},
		[]DeliveryItem{{MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St"}},
	)
	require.NoError(t, err)

	dineLine := order.PlaceOrders[0].ID
	_, err = svc.TransitionPlaceOrder(context.Background(), dineLine, models.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.TransitionPlaceOrder(context.Background(), dineLine, models.StatusCompleted)
	require.NoError(t, err)

	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, reloaded.Status)

	// Desk stays claimed while the delivery line is open.
	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.False(t, desk.Available)
}

func TestCancelOrderCascadesAndReleasesDesks(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID,
		[]DineInItem{{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1}},
		[]DeliveryItem{{MenuID: fx.menu.ID, Qty: 2, Address: "1 Main St"}},
	)
	require.NoError(t, err)

	_, err = svc.TransitionOrder(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)

	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)
	assert.Equal(t, models.StatusCancelled, reloaded.PlaceOrders[0].Status)
	assert.Equal(t, models.StatusCancelled, reloaded.DeliveryOrders[0].Status)

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.True(t, desk.Available)
}

func TestCancellingEveryLineCancelsOrder(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	_, err = svc.TransitionPlaceOrder(context.Background(), order.PlaceOrders[0].ID, models.StatusCancelled)
	require.NoError(t, err)

	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)
}

func TestQtyFrozenAfterFulfillmentBegins(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)
	lineID := order.PlaceOrders[0].ID

	qty := 5
	line, err := svc.UpdatePlaceOrder(context.Background(), lineID, PlaceOrderPatch{Qty: &qty})
	require.NoError(t, err)
	assert.Equal(t, 5, line.Qty)
	assert.Equal(t, 62.5, line.PriceTotal)

	_, err = svc.TransitionPlaceOrder(context.Background(), lineID, models.StatusInProgress)
	require.NoError(t, err)

	qty = 2
	_, err = svc.UpdatePlaceOrder(context.Background(), lineID, PlaceOrderPatch{Qty: &qty})
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestCancelledLineRejectsQtyEdit(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID,
		[]DineInItem{{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1}},
		[]DeliveryItem{{MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St"}},
	)
	require.NoError(t, err)
	lineID := order.PlaceOrders[0].ID

	_, err = svc.TransitionPlaceOrder(context.Background(), lineID, models.StatusCancelled)
	require.NoError(t, err)

	// The sibling keeps the order open, but the cancelled line itself is done.
	reloaded, err := svc.reloadOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPlaced, reloaded.Status)

	qty := 4
	_, err = svc.UpdatePlaceOrder(context.Background(), lineID, PlaceOrderPatch{Qty: &qty})
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestLinesFrozenOnceFulfillmentBegins(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	_, err = svc.TransitionOrder(context.Background(), order.ID, models.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.AddDeliveryOrder(context.Background(), order.ID, DeliveryItem{
		MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St",
	})
	assert.True(t, apperrors.Is(err, apperrors.Conflict))

	err = svc.DeletePlaceOrder(context.Background(), order.PlaceOrders[0].ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}

func TestDeletePlaceOrderReleasesDeskWhenLastHolder(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, []DineInItem{
		{DeskID: fx.desk.ID, MenuID: fx.menu.ID, Qty: 1},
	}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlaceOrder(context.Background(), order.PlaceOrders[0].ID))

	var desk models.Desk
	require.NoError(t, db.First(&desk, fx.desk.ID).Error)
	assert.True(t, desk.Available)
}

func TestDeleteOrderRequiresTerminalState(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, nil, []DeliveryItem{
		{MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St"},
	})
	require.NoError(t, err)

	err = svc.DeleteOrder(context.Background(), order.ID)
	assert.True(t, apperrors.Is(err, apperrors.Conflict))

	_, err = svc.TransitionOrder(context.Background(), order.ID, models.StatusCancelled)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteOrder(context.Background(), order.ID))

	var lines int64
	require.NoError(t, db.Model(&models.DeliveryOrder{}).Where("order_id = ?", order.ID).Count(&lines).Error)
	assert.EqualValues(t, 0, lines)
}

func TestDeliveryAddressEditableUntilTerminal(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixture(t, db)
	svc := NewOrderService(db)

	order, err := svc.CreateOrder(context.Background(), fx.customer.ID, nil, []DeliveryItem{
		{MenuID: fx.menu.ID, Qty: 1, Address: "1 Main St"},
	})
	require.NoError(t, err)
	lineID := order.DeliveryOrders[0].ID

	_, err = svc.TransitionDeliveryOrder(context.Background(), lineID, models.StatusInProgress)
	require.NoError(t, err)

	addr := "2 Side St"
	line, err := svc.UpdateDeliveryOrder(context.Background(), lineID, DeliveryOrderPatch{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "2 Side St", line.Address)

	_, err = svc.TransitionDeliveryOrder(context.Background(), lineID, models.StatusCompleted)
	require.NoError(t, err)

	addr = "3 Back St"
	_, err = svc.UpdateDeliveryOrder(context.Background(), lineID, DeliveryOrderPatch{Address: &addr})
	assert.True(t, apperrors.Is(err, apperrors.Conflict))
}
