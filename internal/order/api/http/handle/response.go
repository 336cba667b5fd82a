package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"canteen-backend/internal/order/app/core"
)

// writeError maps the core error taxonomy onto HTTP statuses: validation
// 400, unknown order/item/user 404, wrong-state transitions 409, anything
// else 500.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrOrderNotFound),
		errors.Is(err, core.ErrItemNotFound),
		errors.Is(err, core.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
