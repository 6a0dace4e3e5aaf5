package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/dto"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// Context ключи для gin.Context.
const (
	ContextUserIDKey = "userID"
	ContextRoleKey   = "role"
)

// AccessTokenParser разбирает access-токен в id пользователя и роль.
type AccessTokenParser interface {
	ParseAccess(token string) (uuid.UUID, string, error)
}

// AuthMiddleware проверяет Bearer-токен и кладёт в контекст id и роль участника.
func AuthMiddleware(tokens AccessTokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "требуется авторизация")
			return
		}

		userID, rawRole, err := tokens.ParseAccess(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || userID == uuid.Nil {
			abort(c, http.StatusUnauthorized, apperror.ErrCodeUnauthorized, "токен невалиден")
			return
		}
		role, err := valueobject.ParseRole(rawRole)
		if err != nil {
			abort(c, http.StatusForbidden, apperror.ErrCodeForbidden, "неизвестная роль пользователя")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

func abort(c *gin.Context, status int, code apperror.ErrorCode, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: message, Code: string(code)})
}
