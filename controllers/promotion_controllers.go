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

type PromotionController struct {
	Store *store.Store
}

func NewPromotionController(db *gorm.DB) *PromotionController {
	return &PromotionController{Store: store.New(db)}
}

func (pc *PromotionController) GetAllPromotions(c *gin.Context) {
	var promos []models.Promotion
	err := readRetry(func() error {
		var err error
		promos, err = pc.Store.ListPromotions(c.Request.Context(), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All promotions", promos)
}

func (pc *PromotionController) GetPromotionByID(c *gin.Context) {
	id, ok := parseID(c, "promo_id")
	if !ok {
		return
	}

	var promo *models.Promotion
	err := readRetry(func() error {
		var err error
		promo, err = pc.Store.GetPromotion(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotion detail", promo)
}

func (pc *PromotionController) CreatePromotion(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResPromotion); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		MenuID uint   `json:"menu_id" binding:"required"`
		Image  string `json:"image" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	promo := models.Promotion{MenuID: body.MenuID, Image: body.Image}
	if err := pc.Store.CreatePromotion(c.Request.Context(), &promo); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Promotion created", promo)
}

func (pc *PromotionController) UpdatePromotion(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResPromotion); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "promo_id")
	if !ok {
		return
	}

	var body struct {
		MenuID *uint   `json:"menu_id"`
		Image  *string `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	promo, err := pc.Store.UpdatePromotion(c.Request.Context(), id, store.PromotionPatch{
		MenuID: body.MenuID,
		Image:  body.Image,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotion updated", promo)
}

func (pc *PromotionController) DeletePromotion(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResPromotion); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "promo_id")
	if !ok {
		return
	}

	if err := pc.Store.DeletePromotion(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Promotion deleted", gin.H{"id": id})
}
