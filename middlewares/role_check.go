package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/utils"
)

// AdminOnly rejects any actor without the admin role. Used for the user/role
// management surface where no end-user access exists at all.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorValue, exists := c.Get(ActorKey)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		actor, ok := actorValue.(policy.Actor)
		if !ok || !actor.Active || !actor.HasRole(models.RoleAdmin) {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("admin access required"))
			c.Abort()
			return
		}

		c.Next()
	}
}
