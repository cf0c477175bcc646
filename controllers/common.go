package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qrestaurant/backoffice/apperrors"
	"github.com/qrestaurant/backoffice/middlewares"
	"github.com/qrestaurant/backoffice/policy"
	"github.com/qrestaurant/backoffice/store"
)

// CurrentActor returns the actor resolved by the auth middlewares, or an
// anonymous actor for unauthenticated requests.
func CurrentActor(c *gin.Context) policy.Actor {
	if v, ok := c.Get(middlewares.ActorKey); ok {
		if actor, ok := v.(policy.Actor); ok {
			return actor
		}
	}
	return policy.Anonymous()
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		respondBadID(c)
		return 0, false
	}
	return uint(id), true
}

func respondBadID(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status":  false,
		"message": "invalid id parameter",
	})
}

func parseOptionalID(s string) (uint, bool) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}

// parseListOptions reads limit/offset/sort query params with sane bounds.
func parseListOptions(c *gin.Context) store.ListOptions {
	opts := store.ListOptions{Limit: 50}

	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		if v > 200 {
			v = 200
		}
		opts.Limit = v
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v >= 0 {
		opts.Offset = v
	}
	opts.Sort = c.Query("sort")
	return opts
}

// readRetry runs a read operation, retrying once if the store timed out.
// Writes are never retried.
var errNilRead = errors.New("nil read op")

func readRetry(fn func() error) error {
	if fn == nil {
		return errNilRead
	}
	err := fn()
	if apperrors.Is(err, apperrors.Timeout) {
		err = fn()
	}
	return err
}
