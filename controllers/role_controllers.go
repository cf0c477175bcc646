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

type RoleController struct {
	Store *store.Store
}

func NewRoleController(db *gorm.DB) *RoleController {
	return &RoleController{Store: store.New(db)}
}

func (rc *RoleController) GetAllRoles(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResRole); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var roles []models.Role
	err := readRetry(func() error {
		var err error
		roles, err = rc.Store.ListRoles(c.Request.Context(), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All roles", roles)
}

func (rc *RoleController) GetRoleByID(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResRole); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "role_id")
	if !ok {
		return
	}

	var role *models.Role
	err := readRetry(func() error {
		var err error
		role, err = rc.Store.GetRole(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role detail", role)
}

func (rc *RoleController) CreateRole(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResRole); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	role := models.Role{Name: body.Name, Description: body.Description}
	if err := rc.Store.CreateRole(c.Request.Context(), &role); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Role created", role)
}

func (rc *RoleController) UpdateRole(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResRole); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "role_id")
	if !ok {
		return
	}

	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	role, err := rc.Store.UpdateRole(c.Request.Context(), id, store.RolePatch{
		Name:        body.Name,
		Description: body.Description,
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role updated", role)
}

func (rc *RoleController) DeleteRole(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResRole); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "role_id")
	if !ok {
		return
	}

	if err := rc.Store.DeleteRole(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role deleted", gin.H{"id": id})
}
