package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/services"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type OrderController struct {
	Store   *store.Store
	Service *services.OrderService
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{
		Store:   store.New(db),
		Service: services.NewOrderService(db),
	}
}

// ownsOrder reports whether the actor may see or mutate the given order.
// Admins touch everything; customers only their own orders.
func ownsOrder(actor policy.Actor, order *models.Order) error {
	if actor.Roles[models.RoleAdmin] {
		return nil
	}
	if actor.CustomerID != 0 && actor.CustomerID == order.CustomerID {
		return nil
	}
	return apperrors.New(apperrors.Authorization, "order belongs to another customer")
}

// loadOwnedOrder fetches the order and enforces ownership in one step.
func (oc *OrderController) loadOwnedOrder(c *gin.Context, orderID uint) (*models.Order, bool) {
	var order *models.Order
	err := readRetry(func() error {
		var err error
		order, err = oc.Store.GetOrder(c.Request.Context(), orderID)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return nil, false
	}
	if err := ownsOrder(CurrentActor(c), order); err != nil {
		utils.RespondAppError(c, err)
		return nil, false
	}
	return order, true
}

type dineInBody struct {
	DeskID uint `json:"desk_id" binding:"required"`
	MenuID uint `json:"menu_id" binding:"required"`
	Qty    int  `json:"qty" binding:"required"`
}

type deliveryBody struct {
	MenuID  uint   `json:"menu_id" binding:"required"`
	Qty     int    `json:"qty" binding:"required"`
	Address string `json:"address" binding:"required"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

// CreateOrder opens an order with any initial lines. Customers always order
// for themselves; admins may pass customer_id to order on a customer's behalf.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	actor := CurrentActor(c)
	if err := policy.Authorize(actor, policy.OpCreate, policy.ResOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		CustomerID uint           `json:"customer_id"`
		DineIn     []dineInBody   `json:"dine_in"`
		Delivery   []deliveryBody `json:"delivery"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	customerID := body.CustomerID
	if !actor.Roles[models.RoleAdmin] {
		customerID = actor.CustomerID
	}
	if customerID == 0 {
		utils.RespondAppError(c, apperrors.New(apperrors.Validation, "customer_id is required"))
		return
	}

	dineIn := make([]services.DineInItem, 0, len(body.DineIn))
	for _, item := range body.DineIn {
		dineIn = append(dineIn, services.DineInItem{
			DeskID: item.DeskID,
			MenuID: item.MenuID,
			Qty:    item.Qty,
		})
	}
	delivery := make([]services.DeliveryItem, 0, len(body.Delivery))
	for _, item := range body.Delivery {
		delivery = append(delivery, services.DeliveryItem{
			MenuID:  item.MenuID,
			Qty:     item.Qty,
			Address: item.Address,
			Phone:   item.Phone,
			Notes:   item.Notes,
		})
	}

	order, err := oc.Service.CreateOrder(c.Request.Context(), customerID, dineIn, delivery)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %d created for customer %d", order.ID, customerID)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetAllOrders lists orders. Customers see only their own; admins may filter
// by ?customer_id= and ?status=.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	actor := CurrentActor(c)
	if err := policy.Authorize(actor, policy.OpRead, policy.ResOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var customerID *uint
	if actor.Roles[models.RoleAdmin] {
		if id, ok := parseOptionalID(c.Query("customer_id")); ok {
			customerID = &id
		}
	} else {
		id := actor.CustomerID
		customerID = &id
	}

	var orders []models.Order
	err := readRetry(func() error {
		var err error
		orders, err = oc.Store.ListOrders(c.Request.Context(), customerID, c.Query("status"), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "order_id")
	if !ok {
		return
	}

	order, ok := oc.loadOwnedOrder(c, id)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// TransitionOrder moves the whole order to a target status.
func (oc *OrderController) TransitionOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpTransition, policy.ResOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, id); !ok {
		return
	}

	var body struct {
		TargetStatus string `json:"target_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Service.TransitionOrder(c.Request.Context(), id, body.TargetStatus)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Order %d moved to %s", order.ID, order.Status)
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, id); !ok {
		return
	}

	if err := oc.Service.DeleteOrder(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", gin.H{"id": id})
}

// ------------------------------------------------------------- dine-in lines

func (oc *OrderController) CreatePlaceOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResPlaceOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	orderID, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, orderID); !ok {
		return
	}

	var body dineInBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.AddPlaceOrder(c.Request.Context(), orderID, services.DineInItem{
		DeskID: body.DeskID,
		MenuID: body.MenuID,
		Qty:    body.Qty,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Dine-in line added", line)
}

func (oc *OrderController) GetPlaceOrders(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResPlaceOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	orderID, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, orderID); !ok {
		return
	}

	var lines []models.PlaceOrder
	err := readRetry(func() error {
		var err error
		lines, err = oc.Store.ListPlaceOrders(c.Request.Context(), &orderID, parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dine-in lines", lines)
}

func (oc *OrderController) UpdatePlaceOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResPlaceOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedPlaceOrderID(c)
	if !ok {
		return
	}

	var body struct {
		Qty *int `json:"qty"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.UpdatePlaceOrder(c.Request.Context(), lineID, services.PlaceOrderPatch{Qty: body.Qty})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dine-in line updated", line)
}

func (oc *OrderController) TransitionPlaceOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpTransition, policy.ResPlaceOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedPlaceOrderID(c)
	if !ok {
		return
	}

	var body struct {
		TargetStatus string `json:"target_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.TransitionPlaceOrder(c.Request.Context(), lineID, body.TargetStatus)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Dine-in line %d moved to %s", line.ID, line.Status)
	utils.RespondJSON(c, http.StatusOK, "Dine-in line updated", line)
}

func (oc *OrderController) DeletePlaceOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResPlaceOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedPlaceOrderID(c)
	if !ok {
		return
	}

	if err := oc.Service.DeletePlaceOrder(c.Request.Context(), lineID); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dine-in line deleted", gin.H{"id": lineID})
}

// ------------------------------------------------------------ delivery lines

func (oc *OrderController) CreateDeliveryOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResDeliveryOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	orderID, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, orderID); !ok {
		return
	}

	var body deliveryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.AddDeliveryOrder(c.Request.Context(), orderID, services.DeliveryItem{
		MenuID:  body.MenuID,
		Qty:     body.Qty,
		Address: body.Address,
		Phone:   body.Phone,
		Notes:   body.Notes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Delivery line added", line)
}

func (oc *OrderController) GetDeliveryOrders(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResDeliveryOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	orderID, ok := parseID(c, "order_id")
	if !ok {
		return
	}
	if _, ok := oc.loadOwnedOrder(c, orderID); !ok {
		return
	}

	var lines []models.DeliveryOrder
	err := readRetry(func() error {
		var err error
		lines, err = oc.Store.ListDeliveryOrders(c.Request.Context(), &orderID, parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery lines", lines)
}

func (oc *OrderController) UpdateDeliveryOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResDeliveryOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedDeliveryOrderID(c)
	if !ok {
		return
	}

	var body struct {
		Qty     *int    `json:"qty"`
		Address *string `json:"address"`
		Phone   *string `json:"phone"`
		Notes   *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.UpdateDeliveryOrder(c.Request.Context(), lineID, services.DeliveryOrderPatch{
		Qty:     body.Qty,
		Address: body.Address,
		Phone:   body.Phone,
		Notes:   body.Notes,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery line updated", line)
}

func (oc *OrderController) TransitionDeliveryOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpTransition, policy.ResDeliveryOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedDeliveryOrderID(c)
	if !ok {
		return
	}

	var body struct {
		TargetStatus string `json:"target_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	line, err := oc.Service.TransitionDeliveryOrder(c.Request.Context(), lineID, body.TargetStatus)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Delivery line %d moved to %s", line.ID, line.Status)
	utils.RespondJSON(c, http.StatusOK, "Delivery line updated", line)
}

func (oc *OrderController) DeleteDeliveryOrder(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResDeliveryOrder); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	lineID, ok := oc.ownedDeliveryOrderID(c)
	if !ok {
		return
	}

	if err := oc.Service.DeleteDeliveryOrder(c.Request.Context(), lineID); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Delivery line deleted", gin.H{"id": lineID})
}

// ownedPlaceOrderID resolves the :line_id param and checks the parent order's
// ownership before any mutation.
func (oc *OrderController) ownedPlaceOrderID(c *gin.Context) (uint, bool) {
	lineID, ok := parseID(c, "line_id")
	if !ok {
		return 0, false
	}

	line, err := oc.Store.GetPlaceOrder(c.Request.Context(), lineID)
	if err != nil {
		utils.RespondAppError(c, err)
		return 0, false
	}
	if _, ok := oc.loadOwnedOrder(c, line.OrderID); !ok {
		return 0, false
	}
	return lineID, true
}

func (oc *OrderController) ownedDeliveryOrderID(c *gin.Context) (uint, bool) {
	lineID, ok := parseID(c, "line_id")
	if !ok {
		return 0, false
	}

	line, err := oc.Store.GetDeliveryOrder(c.Request.Context(), lineID)
	if err != nil {
		utils.RespondAppError(c, err)
		return 0, false
	}
	if _, ok := oc.loadOwnedOrder(c, line.OrderID); !ok {
		return 0, false
	}
	return lineID, true
}
