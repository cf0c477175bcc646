package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/utils"
)

// ActorKey is the context key carrying the resolved policy.Actor.
const ActorKey = "actor"

// AuthMiddleware authenticates admin-surface requests with a bearer JWT and
// attaches a fully-resolved actor. Role membership is read fresh from the
// association table on every request, not trusted from the token alone.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid authorization header format"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, err)
			c.Abort()
			return
		}

		db := utils.GetDB()
		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("unknown user"))
			c.Abort()
			return
		}

		var roleNames []string
		err = db.Model(&models.RolesUsers{}).
			Select("roles.name").
			Joins("JOIN roles ON roles.id = roles_users.role_id").
			Where("roles_users.user_id = ?", user.ID).
			Scan(&roleNames).Error
		if err != nil {
			utils.RespondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}

		roles := make(map[string]bool, len(roleNames))
		for _, name := range roleNames {
			roles[name] = true
		}

		actor := policy.Actor{
			ID:            user.ID,
			Name:          user.Name,
			Roles:         roles,
			Active:        user.Active,
			Authenticated: true,
		}

		c.Set(ActorKey, actor)
		c.Set("user_id", user.ID)
		c.Set("token", tokenString)
		c.Next()
	}
}
