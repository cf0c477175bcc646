package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type MenuController struct {
	Store *store.Store
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{Store: store.New(db)}
}

// GetAllMenus lists the catalog, optionally filtered by ?category_id=.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	var categoryID *uint
	if v, err := strconv.ParseUint(c.Query("category_id"), 10, 32); err == nil {
		id := uint(v)
		categoryID = &id
	}

	var menus []models.Menu
	err := readRetry(func() error {
		var err error
		menus, err = mc.Store.ListMenus(c.Request.Context(), categoryID, parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, ok := parseID(c, "menu_id")
	if !ok {
		return
	}

	var menu *models.Menu
	err := readRetry(func() error {
		var err error
		menu, err = mc.Store.GetMenu(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", menu)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResMenu); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		CategoryID  uint    `json:"category_id" binding:"required"`
		Price       float64 `json:"price"`
		Image       string  `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu := models.Menu{
		Name:        body.Name,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		Price:       body.Price,
		Image:       body.Image,
	}
	if err := mc.Store.CreateMenu(c.Request.Context(), &menu); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Menu created: %s (category=%d, price=%.2f)", menu.Name, menu.CategoryID, menu.Price)
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResMenu); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "menu_id")
	if !ok {
		return
	}

	var body struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		CategoryID  *uint    `json:"category_id"`
		Price       *float64 `json:"price"`
		Image       *string  `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu, err := mc.Store.UpdateMenu(c.Request.Context(), id, store.MenuPatch{
		Name:        body.Name,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		Price:       body.Price,
		Image:       body.Image,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu updated", menu)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResMenu); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "menu_id")
	if !ok {
		return
	}

	if err := mc.Store.DeleteMenu(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", gin.H{"id": id})
}
