package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type CustomerController struct {
	Store *store.Store
}

func NewCustomerController(db *gorm.DB) *CustomerController {
	return &CustomerController{Store: store.New(db)}
}

// RegisterCustomer is the public sign-up for the ordering API. The response
// is the only time the API key is returned in full.
func (cc *CustomerController) RegisterCustomer(c *gin.Context) {
	var body struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	customer := models.Customer{
		Name:         body.Name,
		Email:        body.Email,
		PasswordHash: string(hashed),
		APIKey:       uuid.NewString(),
		Status:       models.CustomerActive,
	}
	if err := cc.Store.CreateCustomer(c.Request.Context(), &customer); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Customer registered: %s", customer.Email)
	utils.RespondJSON(c, http.StatusCreated, "Customer registered", gin.H{
		"customer_id": customer.ID,
		"api_key":     customer.APIKey,
	})
}

func (cc *CustomerController) GetAllCustomers(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResCustomer); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var customers []models.Customer
	err := readRetry(func() error {
		var err error
		customers, err = cc.Store.ListCustomers(c.Request.Context(), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of customers", customers)
}

func (cc *CustomerController) GetCustomerByID(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResCustomer); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var customer *models.Customer
	err := readRetry(func() error {
		var err error
		customer, err = cc.Store.GetCustomer(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer detail", customer)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResCustomer); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var body struct {
		Name   *string `json:"name"`
		Email  *string `json:"email"`
		Status *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	customer, err := cc.Store.UpdateCustomer(c.Request.Context(), id, store.CustomerPatch{
		Name:   body.Name,
		Email:  body.Email,
		Status: body.Status,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer updated", customer)
}

func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResCustomer); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	if err := cc.Store.DeleteCustomer(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Customer deleted", gin.H{"id": id})
}
