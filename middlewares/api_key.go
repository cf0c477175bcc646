package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrestaurant/backoffice/models"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/utils"
)

// APIKeyAuthMiddleware authenticates ordering-API requests with the
// per-customer key issued at registration. Inactive customers authenticate
// but carry Active=false, so the policy engine denies everything.
func APIKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("X-API-Key header missing"))
			c.Abort()
			return
		}

		var customer models.Customer
		if err := utils.GetDB().Where("api_key = ?", apiKey).First(&customer).Error; err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid API key"))
			c.Abort()
			return
		}

		actor := policy.Actor{
			ID:            customer.ID,
			Name:          customer.Name,
			Roles:         map[string]bool{models.RoleEndUser: true},
			Active:        customer.Status == models.CustomerActive,
			Authenticated: true,
			CustomerID:    customer.ID,
		}

		c.Set(ActorKey, actor)
		c.Set("customer_id", customer.ID)
		c.Next()
	}
}
