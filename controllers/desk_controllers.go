package controllers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type DeskController struct {
	Store *store.Store
}

func NewDeskController(db *gorm.DB) *DeskController {
	return &DeskController{Store: store.New(db)}
}

// GetAllDesks lists desks, optionally filtered by ?available=true|false.
func (dc *DeskController) GetAllDesks(c *gin.Context) {
	var available *bool
	if v, err := strconv.ParseBool(c.Query("available")); err == nil {
		available = &v
	}

	var desks []models.Desk
	err := readRetry(func() error {
		var err error
		desks, err = dc.Store.ListDesks(c.Request.Context(), available, parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of desks", desks)
}

func (dc *DeskController) GetDeskByID(c *gin.Context) {
	id, ok := parseID(c, "desk_id")
	if !ok {
		return
	}

	var desk *models.Desk
	err := readRetry(func() error {
		var err error
		desk, err = dc.Store.GetDesk(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Desk detail", desk)
}

func (dc *DeskController) CreateDesk(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResDesk); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Name     string `json:"name" binding:"required"`
		Capacity int    `json:"capacity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	desk := models.Desk{Name: body.Name, Capacity: body.Capacity}
	if err := dc.Store.CreateDesk(c.Request.Context(), &desk); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.InfoLogger.Printf("Desk created: %s (capacity=%d)", desk.Name, desk.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Desk created", desk)
}

// UpdateDesk edits name and capacity only. Availability belongs to the order
// state machine and is not accepted here.
func (dc *DeskController) UpdateDesk(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResDesk); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "desk_id")
	if !ok {
		return
	}

	var body struct {
		Name     *string `json:"name"`
		Capacity *int    `json:"capacity"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	desk, err := dc.Store.UpdateDesk(c.Request.Context(), id, store.DeskPatch{
		Name:     body.Name,
		Capacity: body.Capacity,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Desk updated", desk)
}

func (dc *DeskController) DeleteDesk(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResDesk); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "desk_id")
	if !ok {
		return
	}

	if err := dc.Store.DeleteDesk(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Desk deleted", gin.H{"id": id})
}

// GetDeskQR renders the printable QR code that points guests at the menu for
// this desk.
func (dc *DeskController) GetDeskQR(c *gin.Context) {
	id, ok := parseID(c, "desk_id")
	if !ok {
		return
	}

	if _, err := dc.Store.GetDesk(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	baseURL := os.Getenv("PUBLIC_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	png, err := utils.GenerateQRCode(fmt.Sprintf("%s/menus?desk_id=%d", baseURL, id), 256)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
