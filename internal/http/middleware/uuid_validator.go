package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// UUIDValidator отклоняет запрос, если параметр пути не UUID.
// Использование: group.GET("/orders/:id", UUIDValidator("id"), handler.GetOrder)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			abort(c, http.StatusBadRequest, apperror.ErrCodeValidation, "параметр "+paramName+" должен быть валидным UUID")
			return
		}
		c.Next()
	}
}
