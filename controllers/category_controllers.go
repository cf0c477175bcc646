package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type CategoryController struct {
	Store *store.Store
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{Store: store.New(db)}
}

// GetAllCategories is part of the public catalog surface.
func (cc *CategoryController) GetAllCategories(c *gin.Context) {
	var categories []models.Category
	err := readRetry(func() error {
		var err error
		categories, err = cc.Store.ListCategories(c.Request.Context(), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All categories", categories)
}

func (cc *CategoryController) GetCategoryByID(c *gin.Context) {
	id, ok := parseID(c, "cat_id")
	if !ok {
		return
	}

	var category *models.Category
	err := readRetry(func() error {
		var err error
		category, err = cc.Store.GetCategory(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category detail", category)
}

func (cc *CategoryController) CreateCategory(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResCategory); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category := models.Category{Name: body.Name}
	if err := cc.Store.CreateCategory(c.Request.Context(), &category); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Category created: %s", category.Name)
	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResCategory); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "cat_id")
	if !ok {
		return
	}

	var body struct {
		Name *string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category, err := cc.Store.UpdateCategory(c.Request.Context(), id, store.CategoryPatch{Name: body.Name})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResCategory); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "cat_id")
	if !ok {
		return
	}

	if err := cc.Store.DeleteCategory(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Category deleted", gin.H{"id": id})
}
