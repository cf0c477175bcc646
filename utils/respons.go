package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qrestaurant/backoffice/apperrors"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, err error) {
	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
	})
}

// RespondAppError maps the typed error taxonomy onto fixed response codes.
// The mapping is part of the API contract; errors are returned verbatim,
// never swallowed.
func RespondAppError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	var code int
	switch kind {
	case apperrors.Validation:
		code = http.StatusBadRequest
	case apperrors.Authorization:
		code = http.StatusForbidden
	case apperrors.NotFound:
		code = http.StatusNotFound
	case apperrors.Conflict:
		code = http.StatusConflict
	case apperrors.InvalidTransition:
		code = http.StatusUnprocessableEntity
	case apperrors.Timeout:
		code = http.StatusGatewayTimeout
	default:
		code = http.StatusInternalServerError
	}

	c.JSON(code, JSONResponse{
		Status:  false,
		Message: err.Error(),
		Error:   kind.String(),
	})
}
