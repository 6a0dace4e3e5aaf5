package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/middleware"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// CurrentActor собирает участника операции из контекста, заполненного AuthMiddleware.
func CurrentActor(c *gin.Context) (models.Actor, error) {
	rawID, ok := c.Get(middleware.ContextUserIDKey)
	if !ok {
		return models.Actor{}, apperror.ErrUnauthorized
	}
	userID, ok := rawID.(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return models.Actor{}, apperror.ErrUnauthorized
	}
	rawRole, ok := c.Get(middleware.ContextRoleKey)
	if !ok {
		return models.Actor{}, apperror.ErrUnauthorized
	}
	role, ok := rawRole.(valueobject.Role)
	if !ok || !role.IsValid() {
		return models.Actor{}, apperror.ErrForbidden
	}
	return models.Actor{UserID: userID, Role: role}, nil
}

// ParseUUIDParam читает UUID из параметра пути.
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(c.Param(paramName))
	if err != nil {
		return uuid.Nil, apperror.Newf(apperror.ErrCodeValidation, "параметр %s должен быть валидным UUID", paramName)
	}
	return parsed, nil
}

// BindJSON разбирает тело запроса. Пустое тело допустимо, если optional.
func BindJSON(c *gin.Context, req any, optional bool) error {
	if optional && c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "ошибка валидации запроса: "+err.Error())
	}
	return nil
}

// Fail передаёт ошибку в middleware.ErrorHandler, который формирует ответ.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func RespondJSON(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// ParseIntQuery читает целый query-параметр, при ошибке возвращает fallback.
func ParseIntQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// GetPagination возвращает limit и offset с ограничениями по умолчанию.
func GetPagination(c *gin.Context) (limit, offset int) {
	limit = ParseIntQuery(c, "limit", 20)
	offset = ParseIntQuery(c, "offset", 0)
	if limit > 100 {
		limit = 100
	}
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return
}
