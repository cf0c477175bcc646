package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
	"github.com/qrestaurant/backoffice/utils"
)

type UserController struct {
	Store *store.Store
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{Store: store.New(db)}
}

// Login authenticates an admin-surface user and returns a JWT carrying the
// user's role names.
func (uc *UserController) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := uc.Store.GetUserByEmail(c.Request.Context(), input.Email)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid credentials"))
		return
	}
	if !user.Active {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("account is inactive"))
		return
	}

	roles, err := uc.Store.RoleNamesForUser(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	token, err := utils.GenerateToken(user.ID, roles)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Login successful: %s", user.Email)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"roles": roles,
	})
}

// Logout revokes the presented token.
func (uc *UserController) Logout(c *gin.Context) {
	tokenValue, exists := c.Get("token")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("no token in request"))
		return
	}
	token, _ := tokenValue.(string)
	utils.BlacklistToken(token)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

func (uc *UserController) GetProfile(c *gin.Context) {
	actor := CurrentActor(c)
	if !actor.Authenticated {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("authentication required"))
		return
	}

	user, err := uc.Store.GetUser(c.Request.Context(), actor.ID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	roles, err := uc.Store.RoleNamesForUser(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Profile data", gin.H{
		"id":     user.ID,
		"name":   user.Name,
		"email":  user.Email,
		"active": user.Active,
		"roles":  roles,
	})
}

// CreateUser registers an admin-surface user. Only admins reach this handler.
func (uc *UserController) CreateUser(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpCreate, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		RoleIDs  []uint `json:"role_ids"`
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

	user := models.User{
		Name:     body.Name,
		Email:    body.Email,
		Password: string(hashed),
		Active:   true,
	}
	if err := uc.Store.CreateUser(c.Request.Context(), &user); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	for _, roleID := range body.RoleIDs {
		if err := uc.Store.AssignRole(c.Request.Context(), user.ID, roleID); err != nil {
			utils.RespondAppError(c, err)
			return
		}
	}

	utils.InfoLogger.Printf("User created: %s", user.Email)
	utils.RespondJSON(c, http.StatusCreated, "User created", gin.H{"user_id": user.ID})
}

func (uc *UserController) GetAllUsers(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var users []models.User
	err := readRetry(func() error {
		var err error
		users, err = uc.Store.ListUsers(c.Request.Context(), parseListOptions(c))
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

func (uc *UserController) GetUserByID(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpRead, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	var user *models.User
	err := readRetry(func() error {
		var err error
		user, err = uc.Store.GetUser(c.Request.Context(), id)
		return err
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	roles, err := uc.Store.RoleNamesForUser(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "User detail", gin.H{
		"user":  user,
		"roles": roles,
	})
}

func (uc *UserController) UpdateUser(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	var body struct {
		Name     *string `json:"name"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Active   *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	patch := store.UserPatch{
		Name:   body.Name,
		Email:  body.Email,
		Active: body.Active,
	}
	if body.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*body.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			return
		}
		s := string(hashed)
		patch.Password = &s
	}

	user, err := uc.Store.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User updated", user)
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpDelete, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	id, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	if err := uc.Store.DeleteUser(c.Request.Context(), id); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "User deleted", gin.H{"id": id})
}

// AssignRole grants a role to a user through the association table.
func (uc *UserController) AssignRole(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	var body struct {
		RoleID uint `json:"role_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := uc.Store.AssignRole(c.Request.Context(), userID, body.RoleID); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role assigned", gin.H{
		"user_id": userID,
		"role_id": body.RoleID,
	})
}

func (uc *UserController) RevokeRole(c *gin.Context) {
	if err := policy.Authorize(CurrentActor(c), policy.OpUpdate, policy.ResUser); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}
	roleID, ok := parseID(c, "role_id")
	if !ok {
		return
	}

	if err := uc.Store.RevokeRole(c.Request.Context(), userID, roleID); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Role revoked", gin.H{
		"user_id": userID,
		"role_id": roleID,
	})
}
